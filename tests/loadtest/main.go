package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

const (
	numWorkers    = 50
	testDuration  = 10 * time.Second
	numIdentities = 200
)

var baseURL = "http://127.0.0.1:8090"

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
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

type counterSnapshot struct {
	DailyCount int64 `json:"dailyCount"`
	TotalCount int64 `json:"totalCount"`
}

// accepted counts increments answered with 201.
var accepted atomic.Int64

func main() {
	flag.StringVar(&baseURL, "url", baseURL, "tally base URL")
	flag.Parse()

	fmt.Println("=== Tally Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Identities: %d\n\n", numWorkers, testDuration, numIdentities)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			os.Exit(1)
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	before, err := getCounter()
	if err != nil {
		fmt.Printf("FAILED: read counter: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("\n--- Phase 1: Concurrent increments ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doIncrement(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (30% increment, 30% heartbeat, 40% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.30:
			return doIncrement(rng)
		case r < 0.60:
			return doHeartbeat(rng)
		case r < 0.75:
			return doGet("/counter")
		case r < 0.85:
			return doGet("/presence/online")
		case r < 0.95:
			return doGet("/activity/recent")
		default:
			return doGet("/dashboard")
		}
	})

	// let cached reads expire
	time.Sleep(1500 * time.Millisecond)
	after, err := getCounter()
	if err != nil {
		fmt.Printf("FAILED: read counter: %s\n", err)
		os.Exit(1)
	}
	delta := after.TotalCount - before.TotalCount
	fmt.Printf("\ntotalCount %d -> %d (delta %d, accepted increments %d)\n", before.TotalCount, after.TotalCount, delta, accepted.Load())
	if delta != accepted.Load() {
		fmt.Println("FAILED: lost or phantom increments")
		os.Exit(1)
	}
	fmt.Println("OK: no lost increments")
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(rng)
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

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func identity(rng *rand.Rand) string {
	return fmt.Sprintf("user-%d", rng.Intn(numIdentities))
}

func doPost(endpoint string, payload any, want int) result {
	data, _ := json.Marshal(payload)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+endpoint, "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	name := "POST " + endpoint
	if err != nil {
		return result{name, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{name, resp.StatusCode, lat, resp.StatusCode != want}
}

func doIncrement(rng *rand.Rand) result {
	r := doPost("/counter/increment", map[string]string{"actorIdentity": identity(rng)}, http.StatusCreated)
	if !r.err {
		accepted.Add(1)
	}
	return r
}

func doHeartbeat(rng *rand.Rand) result {
	return doPost("/presence/heartbeat", map[string]string{"identity": identity(rng)}, http.StatusNoContent)
}

func doGet(endpoint string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + endpoint)
	lat := time.Since(start)
	name := "GET " + endpoint
	if err != nil {
		return result{name, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{name, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func getCounter() (counterSnapshot, error) {
	var c counterSnapshot
	resp, err := httpClient.Get(baseURL + "/counter")
	if err != nil {
		return c, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c, fmt.Errorf("status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&c)
	return c, err
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

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
