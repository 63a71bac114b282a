package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/agent"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/api"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/config"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/export"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/gui"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/ingestion"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/logger"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/render"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/screening"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

type options struct {
	mode         string
	configPath   string
	jobDesc      string
	jobDescFile  string
	includeCSV   bool
	outDir       string
	gmailSubject string
	originals    bool
	paths        []string
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	timeout, _ := cfg.Timeout()
	client, err := screening.NewClient(cfg.ServerURL,
		screening.WithTimeout(timeout),
		screening.WithLogger(zl.Named("client")),
	)
	if err != nil {
		zl.Fatal("failed to create screening client", zap.Error(err))
	}
	screener := agent.NewScreener(client, zl.Named("screener"))

	switch opts.mode {
	case "web":
		err = runWeb(cfg, screener, client, zl)
	case "gui":
		gui.NewApp(cfg, screener, client, zl.Named("gui")).Run()
	case "cli":
		err = runCLI(opts, cfg, screener, client, zl)
	default:
		err = fmt.Errorf("unknown mode %q (want web, gui or cli)", opts.mode)
	}
	if err != nil {
		zl.Fatal("resume screener stopped", zap.Error(err))
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.mode, "mode", "web", "Front end to run: web, gui or cli")
	flag.StringVar(&opts.configPath, "config", "", "Path to config.json (default: user config directory)")
	flag.StringVar(&opts.jobDesc, "jd", "", "Job description text (cli mode)")
	flag.StringVar(&opts.jobDescFile, "jd-file", "", "File containing the job description (cli mode)")
	flag.BoolVar(&opts.includeCSV, "include-csv", false, "Include database candidates (cli mode)")
	flag.StringVar(&opts.outDir, "out", "", "Directory for CSV and Excel exports (cli mode, default: export_dir)")
	flag.StringVar(&opts.gmailSubject, "gmail-subject", "", "Also screen resume attachments of emails with this subject (cli mode)")
	flag.BoolVar(&opts.originals, "download-originals", false, "Also save the uploaded resumes the server kept into the export directory (cli mode)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-mode web|gui|cli] [options] [resume files or directories]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.paths = flag.Args()
	return opts
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func runWeb(cfg *config.Config, screener *agent.Screener, client *screening.Client, zl *zap.Logger) error {
	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		return err
	}

	server := api.NewServer(screener, client, renderer, zl.Named("api"))
	server.SetIncludeCSV(cfg.IncludeCSV)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("screening console listening",
			zap.String("addr", "http://"+cfg.ListenAddr),
			zap.String("server_url", client.BaseURL()),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		zl.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func runCLI(opts options, cfg *config.Config, screener *agent.Screener, downloader ingestion.Downloader, zl *zap.Logger) error {
	jd := opts.jobDesc
	if opts.jobDescFile != "" {
		data, err := os.ReadFile(opts.jobDescFile)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		jd = string(data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(opts.paths) > 0 {
		files, err := ingestion.NewFileHandler(zl.Named("files")).LoadPaths(ctx, opts.paths...)
		if err != nil {
			return err
		}
		screener.Selection.Add(files...)
	}

	if opts.gmailSubject != "" {
		source, err := ingestion.NewGmailSource(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath, promptAuthCode, zl.Named("gmail"))
		if err != nil {
			return err
		}
		files, err := source.FetchAttachments(ctx, ingestion.SubjectQuery(opts.gmailSubject))
		if err != nil {
			return err
		}
		screener.Selection.Add(files...)
	}

	fmt.Println(screener.Selection.Summary())
	screener.SetProgressCallback(func(current, total int, message string) {
		fmt.Printf("[%3d%%] %s\n", current*100/total, message)
	})

	summary, err := screener.Screen(ctx, jd, opts.includeCSV || cfg.IncludeCSV)
	if err != nil {
		var vErr *screening.ValidationError
		if errors.As(err, &vErr) {
			return errors.New(vErr.Message)
		}
		return errors.New(view.SubmissionNotice(err))
	}

	uploaded, database := screener.Sections()
	for _, section := range []view.Section{uploaded, database} {
		if !section.Visible {
			continue
		}
		fmt.Printf("\n%s\n", section.Title)
		for _, row := range section.Rows {
			fmt.Printf("  %-5s %-30s %8s  %s\n", row.RankText, row.Name, row.ScoreText, skillsText(row))
		}
	}

	records := screener.Session().Records()
	if len(records) == 0 {
		fmt.Println(view.NoticeNothingToExport)
		return nil
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.ExportDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	csvPath, err := export.SaveCSV(records, outDir)
	if err != nil {
		return err
	}
	xlsxPath, err := export.SaveXLSX(records, summary, outDir)
	if err != nil {
		return err
	}
	fmt.Printf("\nExported %s and %s\n", csvPath, xlsxPath)

	if opts.originals {
		var names []string
		for _, r := range records {
			if r.Origin == models.OriginPDF {
				names = append(names, r.Filename)
			}
		}
		saved, err := ingestion.SaveOriginals(ctx, downloader, filepath.Join(outDir, "resumes"), names)
		for _, path := range saved {
			fmt.Printf("Saved %s\n", path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func skillsText(row view.Row) string {
	if !row.HasSkills() {
		return "No Skills"
	}
	texts := make([]string, len(row.Skills))
	for i, b := range row.Skills {
		texts[i] = b.Text
	}
	return strings.Join(texts, ", ")
}

func promptAuthCode(authURL string) (string, error) {
	fmt.Printf("Go to the following link in your browser then type the authorization code: \n%v\n", authURL)
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && code == "" {
		return "", err
	}
	return strings.TrimSpace(code), nil
}
