package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rsms/go-log"
	"github.com/rsms/semantria/semantria"
)

var SEMANTRIA_VERSION string = "0.0.0" // set at compile time

const usageText = `usage: semantria [options] <command> [args]
commands:
  queue [-id ID] FILE|-    queue one document (text read from FILE or stdin)
  batch FILE...            queue files as documents, named by file name
  fetch ID                 fetch and store the analysis of one document
  poll [-o DIR]            wait for processed documents and store them
  results [ID]             print stored results
  configs [NAME VALUE]     list configurations, optionally where NAME == VALUE
  update-config FILE       create or update configurations from a JSON file
  delete-config ID...      delete configurations
  categories               list categories of the current configuration
  watch [-ext EXT] DIR     queue files in DIR as they are created or modified
options:
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
}

func main() {
	defer log.Sync()

	// parse CLI flags
	optConfig := flag.String("c", "semantria.yml", "Config file")
	optConfigId := flag.String("config-id", "", "Configuration to use (overrides config file)")
	optVersion := flag.Bool("version", false, "Print version and exit")
	optDebug := flag.Bool("debug", false, "Enable debug mode")
	flag.Usage = usage
	flag.Parse()

	if *optVersion {
		fmt.Printf("semantria version %s\n", SEMANTRIA_VERSION)
		os.Exit(0)
	}

	// update log level based on CLI options
	log.RootLogger.EnableFeatures(log.FMilliseconds)
	if *optDebug {
		log.RootLogger.Level = log.LevelDebug
		log.RootLogger.EnableFeatures(log.FSync)
	} else {
		log.RootLogger.EnableFeatures(log.FSyncError)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := LoadConfig(*optConfig)
	crashOnErr(err)
	if *optConfigId != "" {
		cfg.ConfigId = *optConfigId
	}
	log.Debug("config (%s):\n%s", cfg.GetSourceFilename(), cfg.YAMLString())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	crashOnErr(runCommand(ctx, cfg.NewClient(), cfg, args[0], args[1:]))
}

func runCommand(ctx context.Context, client *semantria.Client, cfg *Config, cmd string, args []string) error {
	flags := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {

	case "queue":
		optId := flags.String("id", "", "Document id (default: random UUID)")
		flags.Parse(args)
		if flags.NArg() != 1 {
			return errorf("usage: semantria queue [-id ID] FILE|-")
		}
		id := *optId
		if id == "" {
			id = uuid.New().String()
		}
		var text []byte
		var err error
		if flags.Arg(0) == "-" {
			text, err = io.ReadAll(os.Stdin)
		} else {
			text, err = os.ReadFile(flags.Arg(0))
		}
		if err != nil {
			return err
		}
		if _, err := client.QueueDocument(ctx, strings.TrimSpace(string(text)), id, cfg.ConfigId); err != nil {
			return err
		}
		fmt.Println(id)
		return nil

	case "batch":
		flags.Parse(args)
		if flags.NArg() == 0 {
			return errorf("usage: semantria batch FILE...")
		}
		docs := make([]semantria.Document, 0, flags.NArg())
		for _, filename := range flags.Args() {
			doc, err := documentFromFile(filename, "")
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		_, err := client.QueueDocuments(ctx, docs, cfg.ConfigId)
		if err != nil {
			return err
		}
		log.Info("queued %d %s", len(docs), plural(len(docs), "document", "documents"))
		return nil

	case "fetch":
		flags.Parse(args)
		if flags.NArg() != 1 {
			return errorf("usage: semantria fetch ID")
		}
		body, err := client.RequestDocument(ctx, flags.Arg(0), cfg.ConfigId)
		if err != nil {
			return err
		}
		return storeResults(cfg, body)

	case "poll":
		optOutDir := flags.String("o", "", "Also write each result to DIR/<id>.json")
		flags.Parse(args)
		results, err := pollProcessed(ctx, client, cfg)
		if err != nil {
			return err
		}
		if err := withResultDB(cfg, func(db *ResultDB) error { return db.Put(results...) }); err != nil {
			return err
		}
		log.Info("received %d %s", len(results), plural(len(results), "result", "results"))
		if *optOutDir != "" {
			return exportResults(*optOutDir, results)
		}
		return nil

	case "results":
		flags.Parse(args)
		return withResultDB(cfg, func(db *ResultDB) error {
			if flags.NArg() > 0 {
				r, ok, err := db.Get(flags.Arg(0))
				if err != nil {
					return err
				}
				if !ok {
					return errorf("no result for %q", flags.Arg(0))
				}
				return printJSON(r.Data)
			}
			return db.Each(func(r Result) error {
				fmt.Printf("%s\t%s\n", r.Id, r.Data)
				return nil
			})
		})

	case "configs":
		flags.Parse(args)
		configs, err := client.RetrieveConfigurations(ctx, flags.Args()...)
		if err != nil {
			return err
		}
		data, err := json.Marshal(configs)
		if err != nil {
			return err
		}
		return printJSON(data)

	case "update-config":
		flags.Parse(args)
		if flags.NArg() != 1 {
			return errorf("usage: semantria update-config FILE")
		}
		data, err := os.ReadFile(flags.Arg(0))
		if err != nil {
			return err
		}
		var config interface{}
		if err := json.Unmarshal(data, &config); err != nil {
			return errorf("%s: %v", flags.Arg(0), err)
		}
		_, err = client.UpdateConfiguration(ctx, config)
		return err

	case "delete-config":
		flags.Parse(args)
		if flags.NArg() == 0 {
			return errorf("usage: semantria delete-config ID...")
		}
		_, err := client.DeleteConfiguration(ctx, flags.Args())
		return err

	case "categories":
		flags.Parse(args)
		body, err := client.RetrieveCategories(ctx, cfg.ConfigId)
		if err != nil {
			return err
		}
		return printJSON(body)

	case "watch":
		optExt := flags.String("ext", ".txt", "Only queue files with this extension")
		flags.Parse(args)
		if flags.NArg() != 1 {
			return errorf("usage: semantria watch [-ext EXT] DIR")
		}
		return watchDir(ctx, client, cfg, flags.Arg(0), *optExt)

	}
	return errorf("unknown command %q", cmd)
}

// storeResults saves the results in body to the result database and prints body
func storeResults(cfg *Config, body []byte) error {
	results, err := parseResults(body)
	if err != nil {
		return err
	}
	if err := withResultDB(cfg, func(db *ResultDB) error { return db.Put(results...) }); err != nil {
		return err
	}
	return printJSON(body)
}

func withResultDB(cfg *Config, fn func(*ResultDB) error) error {
	db, err := ResultDBOpen(filepath.Join(cfg.DataDir, "results.db"), log.SubLogger("[resultdb]"))
	if err != nil {
		return err
	}
	err = fn(db)
	if err2 := db.Close(); err == nil {
		err = err2
	}
	return err
}

func printJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		// not JSON; print as-is
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
