// Command analyze runs the forecaster and the sentiment scorer over local files,
// or submits sentiment jobs to the batch topic.
//
//	analyze forecast -csv prices.csv -horizon 14 [-format table]
//	analyze sentiment -file tweets.txt [-lexicon words.yaml] [-format table]
//	analyze submit -file tweets.txt -brokers localhost:9092 [-per-line]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"SignalLab/internal/domain/models"
	"SignalLab/internal/services/forecast"
	"SignalLab/internal/services/ingest"
	"SignalLab/internal/services/sentiment"
	pkgkafka "SignalLab/pkg/kafka"
)

const usage = `usage: analyze <command> [flags]

commands:
  forecast    fit a trend line over a CSV of closes and extrapolate it
  sentiment   score every non-empty line of a text file
  submit      publish a text file as sentiment jobs to Kafka
`

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "forecast":
		err = runForecast(args[1:], stdin, stdout, stderr)
	case "sentiment":
		err = runSentiment(args[1:], stdin, stdout, stderr)
	case "submit":
		err = runSubmit(args[1:], stdin, stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "analyze %s: %v\n", args[0], err)
		return 1
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// openInput opens path, with "-" meaning stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func checkFormat(format string) error {
	if format != "json" && format != "table" {
		return fmt.Errorf("-format must be json or table, got %q", format)
	}
	return nil
}

func runForecast(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("forecast", stderr)
	csvPath := fs.String("csv", "", "CSV file with date and close columns (- for stdin)")
	horizon := fs.Int("horizon", ingest.DefaultHorizon, "days to extrapolate")
	format := fs.String("format", "json", "output format: json or table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		fmt.Fprintln(stderr, "-csv is required")
		fs.Usage()
		return errUsage
	}
	if *horizon < 0 {
		return fmt.Errorf("-horizon must not be negative")
	}
	if err := checkFormat(*format); err != nil {
		return err
	}

	in, err := openInput(*csvPath, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	obs, rep, err := ingest.ParseCSV(in)
	if err != nil {
		return err
	}
	if rep.Skipped > 0 {
		fmt.Fprintf(stderr, "skipped %d of %d rows\n", rep.Skipped, rep.Rows)
	}
	if len(obs) == 0 {
		return fmt.Errorf("no valid rows in %s", *csvPath)
	}

	res := forecast.NewLinearForecaster().Forecast(obs, *horizon)
	if *format == "json" {
		return writeJSON(stdout, res)
	}
	return writeForecastTable(stdout, res)
}

func writeForecastTable(w io.Writer, res models.ForecastResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tACTUAL\tPREDICTED")
	for _, p := range res.Combined {
		actual := ""
		if p.Actual != nil {
			actual = fmt.Sprintf("%.2f", *p.Actual)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", p.Timestamp.Format(models.DateLayout), actual, p.Predicted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "slope=%.4f intercept=%.4f\n", res.Slope, res.Intercept)
	return err
}

func runSentiment(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("sentiment", stderr)
	file := fs.String("file", "", "text file, one entry per line (- for stdin)")
	lexPath := fs.String("lexicon", "", "YAML word: polarity file (default: built-in)")
	format := fs.String("format", "json", "output format: json or table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fmt.Fprintln(stderr, "-file is required")
		fs.Usage()
		return errUsage
	}
	if err := checkFormat(*format); err != nil {
		return err
	}

	lex := sentiment.DefaultLexicon()
	if *lexPath != "" {
		var err error
		if lex, err = sentiment.LoadLexicon(*lexPath); err != nil {
			return err
		}
	}

	text, err := readAll(*file, stdin)
	if err != nil {
		return err
	}

	results := sentiment.NewScorer(lex).Analyze(text)
	if results == nil {
		results = []models.SentimentResult{}
	}
	if *format == "json" {
		return writeJSON(stdout, results)
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tSCORE\tCOMPARATIVE\tTEXT")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%s\n", r.Label, r.Score, r.Comparative, r.Text)
	}
	return tw.Flush()
}

func runSubmit(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("submit", stderr)
	file := fs.String("file", "", "text file to submit (- for stdin)")
	brokers := fs.String("brokers", os.Getenv("KAFKA_BROKERS"), "comma separated Kafka brokers")
	topic := fs.String("topic", pkgkafka.DefaultRequestTopic, "job topic")
	perLine := fs.Bool("per-line", false, "submit every non-empty line as its own job")
	timeout := fs.Duration("timeout", 10*time.Second, "publish timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || *brokers == "" {
		fmt.Fprintln(stderr, "-file and -brokers are required")
		fs.Usage()
		return errUsage
	}

	text, err := readAll(*file, stdin)
	if err != nil {
		return err
	}
	jobs := buildJobs(text, *perLine)
	if len(jobs) == 0 {
		return fmt.Errorf("nothing to submit")
	}

	producer, err := pkgkafka.NewProducer(pkgkafka.WithBrokers(strings.Split(*brokers, ",")))
	if err != nil {
		return err
	}
	defer producer.Close()

	msgs := make([]pkgkafka.Message, 0, len(jobs))
	for _, j := range jobs {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(j.ID), Value: j})
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := producer.PublishBatch(ctx, *topic, msgs); err != nil {
		return err
	}
	for _, j := range jobs {
		fmt.Fprintln(stdout, j.ID)
	}
	return nil
}

// buildJobs turns text into one job, or one job per non-empty line.
func buildJobs(text string, perLine bool) []models.SentimentJob {
	if !perLine {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []models.SentimentJob{{ID: uuid.NewString(), Text: text}}
	}
	lines := sentiment.SplitLines(text)
	jobs := make([]models.SentimentJob, 0, len(lines))
	for _, line := range lines {
		jobs = append(jobs, models.SentimentJob{ID: uuid.NewString(), Text: line})
	}
	return jobs
}

func readAll(path string, stdin io.Reader) (string, error) {
	in, err := openInput(path, stdin)
	if err != nil {
		return "", err
	}
	defer in.Close()
	b, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
