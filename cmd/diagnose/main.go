package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/text/unicode/norm"

	"github.com/Skufu/symptomrx/internal/classifier"
	"github.com/Skufu/symptomrx/internal/engine"
	"github.com/Skufu/symptomrx/internal/refdata"
	"github.com/Skufu/symptomrx/internal/vocab"
)

type cliOptions struct {
	source      string
	dataDir     string
	sqlitePath  string
	databaseURL string
	modelKind   string
	modelPath   string
	ortLibrary  string
	onnxInput   string
	onnxOutput  string
	symptoms    []string
	importTo    string
	list        bool
	jsonOut     bool
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("diagnose: %v", err)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		log.Fatalf("diagnose: %v", err)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	var symptoms string

	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.StringVar(&opts.source, "source", getEnv("DATA_SOURCE", "csv"), "Reference data source: csv, sqlite or postgres")
	fs.StringVar(&opts.dataDir, "data-dir", getEnv("DATA_DIR", "data"), "Directory holding the reference CSV files")
	fs.StringVar(&opts.sqlitePath, "sqlite", os.Getenv("SQLITE_PATH"), "SQLite database file")
	fs.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	fs.StringVar(&opts.modelKind, "model-kind", getEnv("MODEL_KIND", classifier.KindONNX), "Model format: onnx or linear")
	fs.StringVar(&opts.modelPath, "model", os.Getenv("MODEL_PATH"), "Path to the trained model")
	fs.StringVar(&opts.ortLibrary, "ort-lib", os.Getenv("ORT_LIBRARY_PATH"), "Path to the onnxruntime shared library")
	fs.StringVar(&opts.onnxInput, "onnx-input", getEnv("ONNX_INPUT_NAME", "float_input"), "Input tensor name of the ONNX graph")
	fs.StringVar(&opts.onnxOutput, "onnx-output", getEnv("ONNX_OUTPUT_NAME", "label"), "Output tensor name of the ONNX graph")
	fs.StringVar(&symptoms, "symptoms", "", "Comma separated symptom names, e.g. itching,skin_rash")
	fs.StringVar(&opts.importTo, "import", "", "Copy the CSV tables into sqlite or postgres and exit")
	fs.BoolVar(&opts.list, "list", false, "Print the symptom vocabulary and exit")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: diagnose --symptoms a,b,c [options]\n       diagnose --import sqlite|postgres [options]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.source = strings.ToLower(strings.TrimSpace(opts.source))
	opts.importTo = strings.ToLower(strings.TrimSpace(opts.importTo))
	for _, s := range strings.Split(symptoms, ",") {
		if s = strings.TrimSpace(norm.NFKC.String(s)); s != "" {
			opts.symptoms = append(opts.symptoms, s)
		}
	}

	switch {
	case opts.list:
	case opts.importTo != "":
		if opts.importTo != "sqlite" && opts.importTo != "postgres" {
			return opts, fmt.Errorf("unknown --import target %q", opts.importTo)
		}
	case len(opts.symptoms) == 0:
		fs.Usage()
		return opts, errors.New("select at least one symptom")
	case opts.modelPath == "":
		return opts, errors.New("missing required --model file")
	}
	return opts, nil
}

func run(ctx context.Context, opts cliOptions, out io.Writer) error {
	if opts.list {
		for _, s := range vocab.Symptoms().Entries() {
			fmt.Fprintf(out, "%3d  %s\n", s.Index, s.Name)
		}
		return nil
	}
	if opts.importTo != "" {
		return importTables(ctx, opts, out)
	}

	loader, closeData, err := openLoader(ctx, opts)
	if err != nil {
		return err
	}
	defer closeData()

	tables, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reference tables: %w", err)
	}

	model, err := classifier.Open(modelOptions(opts))
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer model.Close()

	eng, err := engine.New(model, tables, engine.WithLogger(log.New(os.Stderr, "diagnose: ", log.LstdFlags)))
	if err != nil {
		return err
	}
	rec, err := eng.Recommend(opts.symptoms)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	printRecommendation(out, rec)
	return nil
}

func modelOptions(opts cliOptions) classifier.Options {
	return classifier.Options{
		Kind:        opts.modelKind,
		ModelPath:   opts.modelPath,
		LibraryPath: opts.ortLibrary,
		InputName:   opts.onnxInput,
		OutputName:  opts.onnxOutput,
		Features:    vocab.Symptoms().Size(),
	}
}

func openLoader(ctx context.Context, opts cliOptions) (refdata.Loader, func(), error) {
	switch opts.source {
	case "csv":
		return refdata.CSVDir(opts.dataDir), func() {}, nil
	case "sqlite":
		if opts.sqlitePath == "" {
			return nil, nil, errors.New("--sqlite is required for the sqlite source")
		}
		store, err := refdata.OpenSQLite(opts.sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		if opts.databaseURL == "" {
			return nil, nil, errors.New("--database-url is required for the postgres source")
		}
		pool, err := pgxpool.New(ctx, opts.databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create pool: %w", err)
		}
		return refdata.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", opts.source)
	}
}

func importTables(ctx context.Context, opts cliOptions, out io.Writer) error {
	tables, err := refdata.LoadCSVDir(opts.dataDir)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	switch opts.importTo {
	case "sqlite":
		if opts.sqlitePath == "" {
			return errors.New("--sqlite is required to import into sqlite")
		}
		store, err := refdata.OpenSQLite(opts.sqlitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Replace(ctx, tables); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	case "postgres":
		if opts.databaseURL == "" {
			return errors.New("--database-url is required to import into postgres")
		}
		pool, err := pgxpool.New(ctx, opts.databaseURL)
		if err != nil {
			return fmt.Errorf("create pool: %w", err)
		}
		defer pool.Close()
		store := refdata.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.Replace(ctx, tables); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	fmt.Fprintf(out, "imported %d descriptions, %d precautions, %d medications, %d diets, %d workouts into %s\n",
		len(tables.Descriptions), len(tables.Precautions), len(tables.Medications),
		len(tables.Diets), len(tables.Workouts), opts.importTo)
	return nil
}

func printRecommendation(out io.Writer, rec engine.Recommendation) {
	fmt.Fprintf(out, "Disease: %s (class %d)\n", rec.Disease, rec.ClassIndex)
	if rec.Bundle.Description != "" {
		fmt.Fprintf(out, "\n%s\n", rec.Bundle.Description)
	}
	printList(out, "Precautions", rec.Bundle.Precautions)
	printList(out, "Medications", rec.Bundle.Medications)
	printList(out, "Diets", rec.Bundle.Diets)
	printList(out, "Workouts", rec.Bundle.Workouts)
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for i, item := range items {
		fmt.Fprintf(out, "  %d. %s\n", i+1, item)
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
