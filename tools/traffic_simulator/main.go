package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/db"
	"github.com/patrickwarner/bannerrotator/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	server    string
	users     int
	placeCSV  string
	totalReq  int
	conc      int
	duration  time.Duration
	rate      float64
	clickRate float64
	stats     bool
	flush     bool
	redisAddr string
	debug     bool
	label     string
)

var logger *zap.Logger

var (
	userAgents = []string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 15_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
	}
	userIPs = []string{
		"192.0.2.1",
		"198.51.100.1",
		"203.0.113.1",
	}
)

const statsInterval = 5 * time.Second

var (
	countSent       uint64
	countServed     uint64
	countNoBanner   uint64
	countErrors     uint64
	countClicks     uint64
	distributionMu  sync.Mutex
	distribution    = map[string]map[int]int{}
	bannerNames     = map[int]string{}
	randMu          sync.Mutex
	sharedRand      = rand.New(rand.NewSource(time.Now().UnixNano()))
	noRedirectCheck = func(req *http.Request, via []*http.Request) error { return http.ErrUseLastResponse }
)

type bannerResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ClickURL string `json:"click_url"`
	Place    struct {
		Slug string `json:"slug"`
	} `json:"place"`
}

// visitor is a simulated browser with its own cookie jar, so the server
// tracks one session per visitor.
type visitor struct {
	client *http.Client
	ua     string
	ip     string
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "banner rotator base URL")
	flag.IntVar(&users, "users", 100, "number of unique visitors")
	flag.StringVar(&placeCSV, "places", "header,sidebar", "comma-separated place slugs")
	flag.IntVar(&totalReq, "requests", 1000, "total requests to send")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.DurationVar(&duration, "duration", 0, "how long to run traffic (0 to disable)")
	flag.Float64Var(&rate, "rate", 0, "requests per second (0 for unlimited)")
	flag.Float64Var(&clickRate, "click-rate", 0.05, "probability of a click per served banner")
	flag.BoolVar(&stats, "stats", false, "print aggregated stats periodically")
	flag.BoolVar(&flush, "flush", false, "delete visitor sessions from redis before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		flushSessions()
	}

	places := strings.Split(placeCSV, ",")
	for i := range places {
		places[i] = strings.TrimSpace(places[i])
	}

	visitors := make([]*visitor, users)
	for i := range visitors {
		visitors[i] = newVisitor(i)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	done := make(chan struct{})

	var interval time.Duration
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate)
	} else if duration > 0 && totalReq > 0 {
		interval = duration / time.Duration(totalReq)
	}

	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					printStats()
				case <-done:
					return
				}
			}
		}()
	}

	start := time.Now()
	next := start
	for i := 0; ; i++ {
		if totalReq > 0 && i >= totalReq {
			break
		}
		if duration > 0 && time.Since(start) >= duration {
			break
		}
		if interval > 0 {
			if now := time.Now(); now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(interval)
		}

		v := visitors[randIntn(len(visitors))]
		place := places[randIntn(len(places))]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			v.requestBanner(place)
		}()
	}
	wg.Wait()
	close(done)
	printStats()
	printDistribution()
}

func newVisitor(i int) *visitor {
	jar, _ := cookiejar.New(nil)
	return &visitor{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
			CheckRedirect: noRedirectCheck,
		},
		ua: userAgents[i%len(userAgents)],
		ip: userIPs[i%len(userIPs)],
	}
}

func (v *visitor) get(ctx context.Context, url string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", v.ua)
	req.Header.Set("X-Forwarded-For", v.ip)
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (v *visitor) requestBanner(place string) {
	atomic.AddUint64(&countSent, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	base := strings.TrimRight(server, "/")
	resp, body, err := v.get(ctx, base+"/banner?place_slug="+place)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("banner request error", zap.Error(err))
		return
	}
	switch resp.StatusCode {
	case http.StatusNoContent:
		atomic.AddUint64(&countNoBanner, 1)
		return
	case http.StatusOK:
	default:
		atomic.AddUint64(&countErrors, 1)
		logger.Error("unexpected status", zap.Int("status", resp.StatusCode), zap.String("body", strings.TrimSpace(string(body))))
		return
	}

	var banner bannerResponse
	if err := json.Unmarshal(body, &banner); err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Error("decode error", zap.Error(err))
		return
	}
	atomic.AddUint64(&countServed, 1)
	recordServe(place, banner)
	logger.Debug("banner served", zap.String("place", place), zap.Int("banner_id", banner.ID))

	if randFloat() < clickRate && banner.ClickURL != "" {
		if _, _, err := v.get(ctx, base+banner.ClickURL); err != nil {
			atomic.AddUint64(&countErrors, 1)
			logger.Error("click error", zap.Error(err))
			return
		}
		atomic.AddUint64(&countClicks, 1)
	}
}

func recordServe(place string, b bannerResponse) {
	distributionMu.Lock()
	defer distributionMu.Unlock()
	if distribution[place] == nil {
		distribution[place] = map[int]int{}
	}
	distribution[place][b.ID]++
	bannerNames[b.ID] = b.Name
}

func flushSessions() {
	cfg := config.Load()
	addr := redisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}
	store, err := db.InitRedis(addr)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer store.Close()

	keys, err := store.Client.Keys(store.Ctx, "session:*").Result()
	if err != nil {
		logger.Fatal("list session keys", zap.Error(err))
	}
	if len(keys) > 0 {
		if err := store.Client.Del(store.Ctx, keys...).Err(); err != nil {
			logger.Fatal("delete session keys", zap.Error(err))
		}
	}
	logger.Info("visitor sessions flushed", zap.String("addr", addr), zap.Int("keys_deleted", len(keys)))
}

func randIntn(n int) int {
	randMu.Lock()
	defer randMu.Unlock()
	return sharedRand.Intn(n)
}

func randFloat() float64 {
	randMu.Lock()
	defer randMu.Unlock()
	return sharedRand.Float64()
}

func printStats() {
	sent := atomic.LoadUint64(&countSent)
	served := atomic.LoadUint64(&countServed)
	none := atomic.LoadUint64(&countNoBanner)
	errs := atomic.LoadUint64(&countErrors)
	clk := atomic.LoadUint64(&countClicks)
	var ctr float64
	if served > 0 {
		ctr = float64(clk) / float64(served)
	}
	logger.Info("stats", zap.String("run", label), zap.Uint64("sent", sent), zap.Uint64("served", served),
		zap.Uint64("no_banner", none), zap.Uint64("errors", errs), zap.Uint64("clicks", clk), zap.Float64("ctr", ctr))
}

// printDistribution writes the share of serves per banner for each place.
func printDistribution() {
	distributionMu.Lock()
	defer distributionMu.Unlock()

	places := make([]string, 0, len(distribution))
	for p := range distribution {
		places = append(places, p)
	}
	sort.Strings(places)

	for _, p := range places {
		counts := distribution[p]
		total := 0
		ids := make([]int, 0, len(counts))
		for id, n := range counts {
			ids = append(ids, id)
			total += n
		}
		sort.Ints(ids)
		fmt.Printf("place %s (%d serves)\n", p, total)
		for _, id := range ids {
			fmt.Printf("  %6d  %-30s %6d  %6.2f%%\n", id, bannerNames[id], counts[id], 100*float64(counts[id])/float64(total))
		}
	}
}
