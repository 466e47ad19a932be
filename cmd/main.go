package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jaxxstorm/gitver"
	"github.com/sirupsen/logrus"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	Path        string        `arg:"" optional:"" help:"File or directory to version (default: current directory)"`
	Prefix      string        `default:"${prefix}" help:"Prefix added to the tag unless it already starts with it"`
	Suffix      string        `default:"${suffix}" help:"Separator between the tag and the commit count (e.g. '.post', '.dev')"`
	LocalID     bool          `name:"local-id" default:"${local_id}" negatable:"" help:"Append the abbreviated commit as a local version identifier"`
	Engine      string        `short:"e" default:"${engine}" enum:"exec,go-git" help:"How to describe the repository: run git or use go-git"`
	Match       string        `default:"${match}" help:"Only consider tags matching this glob"`
	Timeout     time.Duration `default:"${timeout}" help:"Timeout for the git invocation"`
	Field       string        `short:"f" default:"version" enum:"version,major,minor,patch" help:"Print only this field"`
	JSON        bool          `short:"j" help:"Output the full resolution as JSON"`
	LogLevel    string        `default:"${log_level}" enum:"trace,debug,info,warn,error" help:"Log level"`
	LogFormat   string        `default:"${log_format}" enum:"text,json" help:"Log format"`
	ShowVersion bool          `help:"Show version information" name:"version"`
}

func main() {
	v, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	vars := configVars(v)
	vars["version"] = Version

	kong.Parse(&cli,
		kong.Name("gitver"),
		kong.Description("Derive a version string from git describe, or from installed package metadata"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		vars,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Run(ctx, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (c *CLI) Run(ctx context.Context, stdout, stderr io.Writer) error {
	if c.ShowVersion {
		return c.showVersion(stdout)
	}

	logger, err := c.logger(stderr)
	if err != nil {
		return err
	}

	path := c.Path
	if path == "" {
		path, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
	}

	resolver := gitver.Resolver{
		Describer: c.describer(),
		Logger:    logger,
	}

	res, err := resolver.ResolveDetailed(ctx, path, c.formatOptions())
	if err != nil {
		return err
	}

	return c.print(stdout, res)
}

func (c *CLI) showVersion(w io.Writer) error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "gitver",
	}

	if c.JSON {
		return json.NewEncoder(w).Encode(versionInfo)
	}

	_, err := fmt.Fprintf(w, "gitver version %s\n", Version)
	return err
}

func (c *CLI) formatOptions() gitver.FormatOptions {
	return gitver.FormatOptions{
		Prefix:         c.Prefix,
		Suffix:         c.Suffix,
		IncludeLocalID: c.LocalID,
	}
}

func (c *CLI) describer() gitver.Describer {
	if c.Engine == "go-git" {
		return gitver.RepositoryDescriber{Match: c.Match}
	}
	return gitver.ExecDescriber{Timeout: c.Timeout, Match: c.Match}
}

func (c *CLI) logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

func (c *CLI) print(w io.Writer, res *gitver.Resolution) error {
	if c.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	output, err := fieldOutput(res, c.Field)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, output)
	return err
}

func fieldOutput(res *gitver.Resolution, field string) (string, error) {
	if field == "" || field == "version" {
		return res.Version, nil
	}

	if res.Tag == nil {
		return "", fmt.Errorf("cannot print %s: %q is not a semantic version", field, res.Version)
	}

	switch field {
	case "major":
		return fmt.Sprint(res.Tag.Major), nil
	case "minor":
		return fmt.Sprint(res.Tag.Minor), nil
	case "patch":
		return fmt.Sprint(res.Tag.Patch), nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}
