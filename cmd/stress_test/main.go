package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	initialStock  = 20
	totalRequests = 50
)

func main() {
	baseURL := envOr("BASE_URL", "http://localhost:8080")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must match the server's")
	}

	gate := auth.NewAccessGate(secret)
	adminToken, err := gate.Issue(domain.Identity{ID: "stress-admin", Role: domain.RoleAdmin}, time.Hour)
	if err != nil {
		log.Fatalf("failed to sign admin token: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// Create a fresh item to drain
	var item handler.CatalogItemDTO
	status, err := call(client, http.MethodPost, baseURL+"/catalog", adminToken, map[string]any{
		"name":     fmt.Sprintf("stress-item-%d", time.Now().Unix()),
		"category": "stress",
		"price":    1,
		"stock":    initialStock,
	}, &item)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("failed to create item: status=%d err=%v", status, err)
	}

	var successCount, soldOutCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			token, err := gate.Issue(domain.Identity{ID: fmt.Sprintf("user-%d", userID), Role: domain.RoleUser}, time.Hour)
			if err != nil {
				otherCount.Add(1)
				return
			}

			status, err := call(client, http.MethodPost, baseURL+"/catalog/"+item.ID+"/purchase", token,
				map[string]any{"quantity": 1}, nil)
			switch {
			case err != nil:
				otherCount.Add(1)
			case status == http.StatusOK:
				successCount.Add(1)
			case status == http.StatusConflict:
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold out (409):   %d\n", soldOut)
	fmt.Printf("Other failures:   %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && soldOut == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	// Verify final stock as admin, the only role that sees it
	var final handler.CatalogItemDTO
	if _, err := call(client, http.MethodGet, baseURL+"/catalog/"+item.ID, adminToken, nil, &final); err != nil || final.Stock == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", *final.Stock)

	if *final.Stock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", *final.Stock)
	}
}

func call(client *http.Client, method, url, token string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
