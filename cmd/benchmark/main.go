package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	origin      string
	dest        string
)

// Metrics
var (
	totalRequests uint64
	booked        uint64
	sameDay       uint64
	noCapacity    uint64 // "Booking failed" responses, mostly capacity or conflicts
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.StringVar(&origin, "origin", "Seattle WA", "Origin city to search")
	flag.StringVar(&dest, "dest", "Boston MA", "Destination city to search")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, i, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, id int, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	username := fmt.Sprintf("bench-%d-%d", id, time.Now().UnixNano())
	if msg := post(client, "/api/v1/users", "", map[string]interface{}{
		"username": username, "password": "pw", "init_amount": 100000,
	}); !strings.HasPrefix(msg, "Created user") {
		atomic.AddUint64(&failOther, 1)
		return
	}

	token, ok := login(client, username)
	if !ok {
		atomic.AddUint64(&failOther, 1)
		return
	}

	for time.Since(start) < duration {
		day := pickDay()

		q := url.Values{}
		q.Set("origin", origin)
		q.Set("dest", dest)
		q.Set("day", fmt.Sprint(day))
		q.Set("count", "5")
		q.Set("direct", "false")
		req, _ := http.NewRequest("GET", targetURL+"/api/v1/flights/search?"+q.Encode(), nil)
		req.Header.Set("X-Session-Token", token)
		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		resp.Body.Close()

		msg := post(client, "/api/v1/bookings", token, map[string]interface{}{"itinerary": 0})
		atomic.AddUint64(&totalRequests, 1)
		switch {
		case strings.HasPrefix(msg, "Booked flight(s)"):
			atomic.AddUint64(&booked, 1)
			// Free the seat and the day so the worker can keep booking.
			var resID int64
			fmt.Sscanf(msg, "Booked flight(s), reservation ID: %d", &resID)
			req, _ := http.NewRequest("DELETE", fmt.Sprintf("%s/api/v1/reservations/%d", targetURL, resID), nil)
			req.Header.Set("X-Session-Token", token)
			if resp, err := client.Do(req); err == nil {
				resp.Body.Close()
			}
		case msg == "You cannot book two flights in the same day":
			atomic.AddUint64(&sameDay, 1)
		case msg == "Booking failed":
			atomic.AddUint64(&noCapacity, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
	}
}

func pickDay() int {
	if workload == "hotspot" {
		// Hotspot: everyone fights over the same day's seats.
		return 1
	}
	return rand.Intn(28) + 1
}

func login(client *http.Client, username string) (string, bool) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": "pw"})
	resp, err := client.Post(targetURL+"/api/v1/sessions", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		return "", false
	}
	return out.Token, true
}

func post(client *http.Client, path, token string, payload map[string]interface{}) string {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", targetURL+path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Session-Token", token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ""
	}
	return out.Message
}

func printResults(elapsed time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	fmt.Println("\n--- Benchmark Results ---")
	fmt.Printf("Duration:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Booking calls:   %d (%.1f/sec)\n", total, float64(total)/elapsed.Seconds())
	fmt.Printf("Booked:          %d\n", atomic.LoadUint64(&booked))
	fmt.Printf("Same-day:        %d\n", atomic.LoadUint64(&sameDay))
	fmt.Printf("Booking failed:  %d\n", atomic.LoadUint64(&noCapacity))
	fmt.Printf("Other failures:  %d\n", atomic.LoadUint64(&failOther))
}
