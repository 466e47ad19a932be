package gitver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	noLocalID := DefaultFormatOptions()
	noLocalID.IncludeLocalID = false

	tests := []struct {
		name     string
		describe string
		opts     FormatOptions
		expected string
	}{
		{"exact tag", "v1.2.0-0-gabc1234", DefaultFormatOptions(), "v1.2.0+abc1234"},
		{"commits since tag", "v1.2.0-5-gabc1234", DefaultFormatOptions(), "v1.2.0.post5+abc1234"},
		{"dirty with local id", "v1.2.0-0-gabc1234-dirty", DefaultFormatOptions(), "v1.2.0+abc1234.dirty"},
		{"dirty without local id", "v1.2.0-0-gabc1234-dirty", noLocalID, "v1.2.0+dirty"},
		{"commits and dirty", "v1.2.0-3-gabc1234-dirty", DefaultFormatOptions(), "v1.2.0.post3+abc1234.dirty"},
		{"exact tag without local id", "v1.2.0-0-gabc1234", noLocalID, "v1.2.0"},
		{"multi digit count", "1.0-120-gabc1234", noLocalID, "1.0.post120"},
		{
			name:     "prefix added",
			describe: "1.2.0-0-gabc1234",
			opts:     FormatOptions{Prefix: "v", Suffix: ".post", IncludeLocalID: true},
			expected: "v1.2.0+abc1234",
		},
		{
			name:     "prefix not doubled",
			describe: "v1.2.0-2-gabc1234",
			opts:     FormatOptions{Prefix: "v", Suffix: ".post"},
			expected: "v1.2.0.post2",
		},
		{
			name:     "dev suffix",
			describe: "2.0.0-7-gabc1234",
			opts:     FormatOptions{Suffix: ".dev", IncludeLocalID: true},
			expected: "2.0.0.dev7+abc1234",
		},
		{
			name:     "pre-release suffix",
			describe: "2.0.0-1-gabc1234",
			opts:     FormatOptions{Suffix: "rc"},
			expected: "2.0.0rc1",
		},
		{
			name:     "tag carrying local segment",
			describe: "1.0+build-0-gabc1234-dirty",
			opts:     FormatOptions{},
			expected: "1.0+build.dirty",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parsed, err := ParseDescribe(test.describe)
			require.NoError(t, err)
			require.Equal(t, test.expected, Format(*parsed, test.opts))
		})
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	d := Describe{Tag: "v1.2.0", CommitsSinceTag: 5, ObjectID: "abc1234", Dirty: true}
	opts := DefaultFormatOptions()

	first := Format(d, opts)
	second := Format(d, opts)
	require.Equal(t, first, second)
	require.Equal(t, "v1.2.0.post5+abc1234.dirty", first)
	require.Equal(t, DefaultFormatOptions(), opts)
}

func TestTagSemver(t *testing.T) {
	tests := []struct {
		tag   string
		major uint64
		minor uint64
		patch uint64
		ok    bool
	}{
		{"v1.2.3", 1, 2, 3, true},
		{"1.2.3", 1, 2, 3, true},
		{"sdk/v2.1.0", 2, 1, 0, true},
		{"release", 0, 0, 0, false},
		{"1.0.post5", 0, 0, 0, false},
	}

	for _, test := range tests {
		t.Run(test.tag, func(t *testing.T) {
			v := TagSemver(test.tag)
			if !test.ok {
				require.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			require.Equal(t, test.major, v.Major)
			require.Equal(t, test.minor, v.Minor)
			require.Equal(t, test.patch, v.Patch)
		})
	}
}

func TestStripModuleTagPrefixes(t *testing.T) {
	require.Equal(t, "0.0.0", stripModuleTagPrefixes("v0.0.0"))
	require.Equal(t, "2.1.0", stripModuleTagPrefixes("sdk/v2.1.0"))
	require.Equal(t, "2.1.0", stripModuleTagPrefixes("sdk/nodejs/v2.1.0"))
}
