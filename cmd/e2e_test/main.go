package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint(baseURL, "GET", "/health", nil, 200)

	// 2. Create Fund
	code := fmt.Sprintf("E2E%d", time.Now().Unix()%100000)
	var created struct {
		ID int64 `json:"id"`
	}
	decode(checkEndpoint(baseURL, "POST", "/api/funds", map[string]interface{}{
		"fundCode": code,
		"fundName": "e2e fund",
		"cost":     1.0,
		"shares":   100,
	}, 200), &created)
	fmt.Printf("Created fund %s with id %d\n", code, created.ID)

	// 3. Duplicate is rejected
	checkEndpoint(baseURL, "POST", "/api/funds", map[string]interface{}{"fundCode": code}, 400)

	// 4. Seed NAV history through import
	checkEndpoint(baseURL, "POST", "/api/import", map[string]interface{}{
		"funds": []interface{}{},
		"dailyData": []map[string]interface{}{
			{"fundCode": code, "nav": 1.0, "dailyChange": 0, "date": "2024-01-01"},
			{"fundCode": code, "nav": 1.5, "dailyChange": 50, "date": "2024-01-02"},
			{"fundCode": code, "nav": 1.0, "dailyChange": -33.33, "date": "2024-01-03"},
			{"fundCode": code, "nav": 1.3, "dailyChange": 30, "date": "2024-01-04"},
		},
	}, 200)

	// 5. History and its statistics
	var hist struct {
		Stats struct {
			MaxDrawdown  string `json:"maxDrawdown"`
			PeriodReturn string `json:"periodReturn"`
			DataPoints   int    `json:"dataPoints"`
		} `json:"stats"`
	}
	decode(checkEndpoint(baseURL, "GET", "/api/history?fundCode="+code+"&period=all", nil, 200), &hist)
	if hist.Stats.MaxDrawdown != "33.33" || hist.Stats.PeriodReturn != "30.00" || hist.Stats.DataPoints != 4 {
		log.Fatalf("unexpected history stats: %+v", hist.Stats)
	}

	// 6. Funds, stats, export
	checkEndpoint(baseURL, "GET", "/api/funds", nil, 200)
	checkEndpoint(baseURL, "GET", "/api/stats", nil, 200)
	checkEndpoint(baseURL, "GET", "/api/export", nil, 200)

	// 7. Update and delete
	checkEndpoint(baseURL, "PUT", fmt.Sprintf("/api/funds/%d", created.ID), map[string]interface{}{"shares": 200}, 200)
	checkEndpoint(baseURL, "DELETE", fmt.Sprintf("/api/funds/%d", created.ID), nil, 200)
	checkEndpoint(baseURL, "DELETE", fmt.Sprintf("/api/funds/%d", created.ID), nil, 404)

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(baseURL, method, path string, body interface{}, expectedStatus int) []byte {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return respBody
}

func decode(b []byte, v interface{}) {
	if err := json.Unmarshal(b, v); err != nil {
		log.Fatalf("decode response: %v", err)
	}
}
