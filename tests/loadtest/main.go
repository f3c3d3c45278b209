package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Expects a songbook server with an open album at /open/ and one gated by a
// code at /locked/.
const (
	baseURL      = "http://127.0.0.1:8090"
	openPage     = "https://songs.local/open/"
	lockedPage   = "https://songs.local/locked/"
	numWorkers   = 50
	testDuration = 10 * time.Second
)

var transport = &http.Transport{
	MaxIdleConns:        200,
	MaxIdleConnsPerHost: 200,
	IdleConnTimeout:     30 * time.Second,
	DialContext: (&net.Dialer{
		Timeout:   2 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// newDevice returns a client with its own cookie jar, so the server issues it
// its own device id.
func newDevice() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: 5 * time.Second, Transport: transport, Jar: jar}
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== Songbook Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n\n", numWorkers, testDuration)

	fmt.Print("Waiting for server... ")
	probe := newDevice()
	for i := 0; i < 30; i++ {
		resp, err := probe.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Mount storm (POST /api/mount) ---")
	runPhase(testDuration, func(c *http.Client, rng *rand.Rand) result {
		page := openPage
		if rng.Float64() < 0.3 {
			page = lockedPage
		}
		return post(c, "/api/mount", map[string]any{"url": page}, http.StatusOK)
	})

	fmt.Println("\n--- Phase 2: Listening (90% timeupdate, 10% pause/play/select) ---")
	runPhase(testDuration, func(c *http.Client, rng *rand.Rand) result {
		r := rng.Float64()
		pos := rng.Float64() * 240
		switch {
		case r < 0.90:
			return event(c, "timeupdate", pos, false)
		case r < 0.94:
			return event(c, "pause", pos, true)
		case r < 0.98:
			return event(c, "play", pos, false)
		default:
			return post(c, "/api/playback/select", map[string]any{"path": "/open/", "index": 0}, http.StatusOK)
		}
	})

	fmt.Println("\n--- Phase 3: Guessing codes on a gated page ---")
	runPhase(testDuration, func(c *http.Client, rng *rand.Rand) result {
		if rng.Float64() < 0.5 {
			return get(c, "/api/gate?path=/locked/")
		}
		code := fmt.Sprintf("%04d", rng.Intn(10000))
		return post(c, "/api/gate/submit", map[string]any{"path": "/locked/", "code": code}, http.StatusOK)
	})
}

func runPhase(duration time.Duration, workFn func(c *http.Client, rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			c := newDevice()
			post(c, "/api/mount", map[string]any{"url": openPage}, http.StatusOK)
			post(c, "/api/mount", map[string]any{"url": lockedPage}, http.StatusOK)
			for {
				select {
				case <-stop:
					post(c, "/api/playback/unload", map[string]any{"path": "/open/"}, http.StatusNoContent)
					return
				default:
					r := workFn(c, rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-28s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 94))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-28s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 94))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(max(totalOps, 1))*100, rps)
}

func event(c *http.Client, name string, pos float64, paused bool) result {
	return post(c, "/api/playback/event", map[string]any{
		"path":        "/open/",
		"event":       name,
		"currentTime": pos,
		"duration":    240.0,
		"paused":      paused,
	}, http.StatusOK)
}

func post(c *http.Client, path string, body map[string]any, want int) result {
	data, _ := json.Marshal(body)
	endpoint := "POST " + path
	start := time.Now()
	resp, err := c.Post(baseURL+path, "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != want}
}

func get(c *http.Client, path string) result {
	endpoint := "GET " + strings.SplitN(path, "?", 2)[0]
	start := time.Now()
	resp, err := c.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
