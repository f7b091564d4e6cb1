package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/gateway"
	"github.com/noah-isme/sma-professor-gateway/internal/models"
	"github.com/noah-isme/sma-professor-gateway/internal/service"
	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	"github.com/noah-isme/sma-professor-gateway/pkg/config"
	"github.com/noah-isme/sma-professor-gateway/pkg/logger"
)

const usage = `usage: professorctl [flags] <command> [args]

commands:
  list                         list every professor
  sync                         synchronize and print the local collection
  filter                       filter with -nome, -cursos, -titulacoes
  lookup <name>                raw backend lookup
  resolve <name>               exact-name resolution
  create -file <professor.json>
  update -id <id> -file <professor.json>
  delete <matriculaId>...      delete one or more professors
  export -format csv|pdf|xlsx -out <path> [-nome, -cursos, -titulacoes]
`

type app struct {
	gateway *gateway.ProfessorGateway
	flow    *service.ProfessorFlow
	export  *service.ExportService
	out     io.Writer
}

func main() {
	var (
		token   string
		timeout time.Duration
	)
	flag.StringVar(&token, "token", "", "Bearer token (overrides TOKEN_SOURCE)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall command timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Log.Format == "" || cfg.Log.Format == "json" {
		cfg.Log.Format = "console"
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	var tokens tokenstore.Store
	if token != "" {
		tokens = tokenstore.NewStatic(token)
	} else {
		store, closeTokens, err := tokenstore.FromConfig(cfg)
		if err != nil {
			logr.Fatal("failed to init token store", zap.Error(err))
		}
		defer closeTokens() //nolint:errcheck
		tokens = store
	}

	gw := gateway.NewFromConfig(cfg, tokens, nil, logr)
	a := &app{
		gateway: gw,
		flow: service.NewProfessorFlow(gw, consoleNotifier(os.Stdout), service.NavigatorFunc(func(route string) {
			logr.Debug("navigate", zap.String("route", route))
		}), service.FlowRoutes{Home: cfg.Routes.Home, ProfessorReport: cfg.Routes.ProfessorReport}, nil, logr),
		export: service.NewExportService(gw, logr),
		out:    os.Stdout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "list":
		professors, err := a.gateway.List(ctx)
		if err != nil {
			return err
		}
		return a.printTable(professors)
	case "sync":
		collection := models.NewProfessorCollection()
		if err := a.flow.Synchronize(ctx, collection); err != nil {
			return err
		}
		return a.printTable(collection.Items())
	case "filter":
		fs := flag.NewFlagSet("filter", flag.ExitOnError)
		filter := filterFlags(fs)
		_ = fs.Parse(args)
		professors, err := a.gateway.Filter(ctx, filter())
		if err != nil {
			return err
		}
		return a.printTable(professors)
	case "lookup":
		if len(args) != 1 {
			return fmt.Errorf("lookup requires a name")
		}
		payload, err := a.gateway.FindByIdentifier(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, string(payload))
		return err
	case "resolve":
		if len(args) != 1 {
			return fmt.Errorf("resolve requires a name")
		}
		professor, err := a.gateway.ResolveByName(ctx, args[0])
		if err != nil {
			return err
		}
		return a.printJSON(professor)
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		file := fs.String("file", "", "Professor JSON file")
		_ = fs.Parse(args)
		professor, err := readProfessor(*file)
		if err != nil {
			return err
		}
		_, err = a.flow.Register(ctx, nil, professor)
		return err
	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		id := fs.String("id", "", "Professor id")
		file := fs.String("file", "", "Professor JSON file")
		_ = fs.Parse(args)
		if *id == "" {
			return fmt.Errorf("update requires -id")
		}
		professor, err := readProfessor(*file)
		if err != nil {
			return err
		}
		_, err = a.flow.Update(ctx, *id, professor)
		return err
	case "delete":
		switch len(args) {
		case 0:
			return fmt.Errorf("delete requires at least one matriculaId")
		case 1:
			_, err := a.flow.Delete(ctx, args[0])
			return err
		default:
			if err := a.gateway.DeleteMany(ctx, args); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "deleted %d professors\n", len(args))
			return err
		}
	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		format := fs.String("format", "csv", "csv, pdf or xlsx")
		out := fs.String("out", "", "Output path (defaults to generated name)")
		filter := filterFlags(fs)
		_ = fs.Parse(args)
		result, err := a.export.Export(ctx, *format, filter())
		if err != nil {
			return err
		}
		path := *out
		if path == "" {
			path = result.Filename
		}
		if err := os.WriteFile(path, result.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		_, err = fmt.Fprintf(a.out, "wrote %d professors to %s\n", result.Rows, path)
		return err
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) printTable(professors []models.Professor) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATRICULA\tNOME\tTITULACAO\tCURSOS\tSTATUS")
	for _, p := range professors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.EnrollmentID, p.Name, p.Qualification, strings.Join(p.CourseIDs, ","), p.ActivityStatus)
	}
	return w.Flush()
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func consoleNotifier(w io.Writer) service.Notifier {
	return service.NotifierFunc(func(n models.Notification) {
		status := "OK"
		if !n.Success {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, n.Action, n.Message)
	})
}

func readProfessor(path string) (models.Professor, error) {
	var professor models.Professor
	if path == "" {
		return professor, fmt.Errorf("-file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return professor, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &professor); err != nil {
		return professor, fmt.Errorf("decode %s: %w", path, err)
	}
	return professor, nil
}

// filterFlags registers the filter criteria on fs; call the result after Parse.
func filterFlags(fs *flag.FlagSet) func() models.ProfessorFilter {
	name := fs.String("nome", "", "Professor name")
	courses := fs.String("cursos", "", "Comma separated course ids")
	titles := fs.String("titulacoes", "", "Comma separated qualifications")
	return func() models.ProfessorFilter {
		return models.ProfessorFilter{
			Name:           strings.TrimSpace(*name),
			CourseIDs:      splitCSV(*courses),
			Qualifications: splitCSV(*titles),
		}
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
