// Command intelctl is the CLI entry point for the interview intelligence
// pipeline: it wires a default set of source adapters behind an in-memory
// store and drives run_complete_analysis / run_batch_analysis from the
// command line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/interviewintel/pipeline/engine"
	"github.com/interviewintel/pipeline/engine/internal/company"
	"github.com/interviewintel/pipeline/engine/internal/crawler"
	"github.com/interviewintel/pipeline/engine/internal/sources"
	"github.com/interviewintel/pipeline/engine/internal/store/memstore"
)

// defaultAdapters wires the four built-in source adapters against
// illustrative domains. A real deployment would override this with
// adapters pointed at its actual target sites and company-variant
// tables; intelctl ships a working default so the binary is runnable
// out of the box.
func defaultAdapters(crawl *crawler.Engine, disambiguator *company.Disambiguator) []sources.Adapter {
	return []sources.Adapter{
		sources.NewBlogAdapter("company_blog", "https://engineering.example.com", nil, crawl, disambiguator),
		sources.NewReviewAdapter("review_site", "https://reviews.example.com", nil, crawl, disambiguator),
		sources.NewDiscussionAdapter("discussion_board", "https://discuss.example.com", "/search", nil, crawl, disambiguator),
		sources.NewForumAdapter("forum", "https://forum.example.com/api", nil, crawl, disambiguator),
	}
}

func main() {
	var (
		companyList    string
		companyFile    string
		maxExperiences int
		forceRefresh   bool
		batch          bool
		batchQuota     int
		showVersion    bool
		metricsAddr    string
		healthAddr     string
		configPath     string
		enableMetrics  bool
	)
	flag.StringVar(&companyList, "companies", "", "Comma separated list of target companies")
	flag.StringVar(&companyFile, "company-file", "", "Path to file containing one target company per line")
	flag.IntVar(&maxExperiences, "max-experiences", 0, "Experience quota per company (0 = use config default)")
	flag.BoolVar(&forceRefresh, "force-refresh", false, "Recollect even if a company's data looks fresh")
	flag.BoolVar(&batch, "batch", false, "Run run_batch_analysis across all companies instead of one at a time")
	flag.IntVar(&batchQuota, "batch-quota", 0, "Per-company quota used in batch mode (0 = use config default)")
	flag.BoolVar(&showVersion, "version", false, "Show version / build info")
	flag.StringVar(&metricsAddr, "metrics", "", "Expose metrics on address (e.g. :9090)")
	flag.StringVar(&healthAddr, "health", "", "Expose health endpoint on address (e.g. :9091)")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file")
	flag.BoolVar(&enableMetrics, "enable-metrics", false, "Enable the Prometheus metrics endpoint")
	flag.Parse()

	if showVersion {
		fmt.Println("intelctl - interview intelligence pipeline CLI")
		return
	}

	companies, err := gatherCompanies(companyList, companyFile)
	if err != nil {
		log.Fatalf("collect companies: %v", err)
	}
	if len(companies) == 0 {
		fmt.Println("No companies provided. Use -companies or -company-file. Example: -companies Amazon,Google")
		os.Exit(1)
	}

	var cfg engine.Config
	if configPath != "" {
		cfg, err = engine.NewFromFile(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	} else {
		cfg = engine.Defaults()
	}
	if enableMetrics {
		cfg.MetricsEnabled = true
	}

	gateway := memstore.New()
	eng := engine.New(cfg, defaultAdapters, gateway, nil, nil)
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("signal received; shutting down")
		cancel()
		<-sigCh
		log.Println("second signal received; forcing exit")
		os.Exit(1)
	}()

	if metricsAddr != "" && cfg.MetricsEnabled {
		go serveHandler(ctx, metricsAddr, "/metrics", eng.MetricsHandler())
	}
	if healthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			report := eng.GetSystemHealth(r.Context())
			_ = json.NewEncoder(w).Encode(report)
		})
		go serveMux(ctx, healthAddr, mux)
	}

	enc := json.NewEncoder(os.Stdout)

	if batch {
		result, err := eng.RunBatchAnalysis(ctx, companies, batchQuota)
		if err != nil {
			log.Fatalf("run batch analysis: %v", err)
		}
		if err := enc.Encode(result); err != nil {
			log.Printf("encode result: %v", err)
		}
		return
	}

	for _, c := range companies {
		result, err := eng.RunCompleteAnalysis(ctx, c, maxExperiences, forceRefresh)
		if err != nil {
			log.Printf("run complete analysis for %s: %v", c, err)
			continue
		}
		if err := enc.Encode(result); err != nil {
			log.Printf("encode result: %v", err)
		}
	}
}

func serveHandler(ctx context.Context, addr, path string, h http.Handler) {
	if h == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(path, h)
	serveMux(ctx, addr, mux)
}

func serveMux(ctx context.Context, addr string, mux *http.ServeMux) {
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("serve %s: %v", addr, err)
	}
}

func gatherCompanies(list, file string) ([]string, error) {
	var companies []string
	if list != "" {
		for _, c := range strings.Split(list, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				companies = append(companies, c)
			}
		}
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			c := strings.TrimSpace(scanner.Text())
			if c != "" {
				companies = append(companies, c)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return companies, nil
}
