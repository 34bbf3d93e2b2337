package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"emoney-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent orders against one wallet must never commit more value than the
// wallet can cover. 25 transfers of 100 against a balance of 1000 leaves
// exactly 10 winners.
func TestIntegration_ConcurrentOrders_NoOverdraw(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAccount(t, "0xalice01", 1000)
	app.seedAccount(t, "0xbob0001", 0)
	alice := app.token(t, "0xalice01")

	const attempts = 25
	statuses := make(chan int, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			payload, _ := json.Marshal(map[string]any{
				"operation_id": fmt.Sprintf("tr-race-%d", i),
				"to":           "0xbob0001",
				"value":        100,
			})
			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/transfers", bytes.NewReader(payload))
			if err != nil {
				statuses <- 0
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+alice)

			resp, err := app.server.Client().Do(req)
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	var created, rejected int
	for status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusPaymentRequired:
			rejected++
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	assert.Equal(t, 10, created)
	assert.Equal(t, 15, rejected)

	acct := app.account(t, alice, "0xalice01")
	assert.EqualValues(t, 1000, acct["balance"])
	assert.EqualValues(t, 1000, acct["held_balance"])
	assert.EqualValues(t, 0, acct["available_funds"])
}

// Cancel races against process: whichever transition lands first wins and
// the loser gets a state conflict, never a double release.
func TestIntegration_ConcurrentCancelAndProcess(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedAccount(t, "0xalice01", 1000)
	app.seedAccount(t, "0xbob0001", 0)
	app.seedAccount(t, "0xop00001", 0)
	app.grantRole(t, "0xop00001", domain.RoleOperator)

	alice := app.token(t, "0xalice01")
	op := app.token(t, "0xop00001")

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("tr-cp-%d", i)
		status, _ := app.do(t, http.MethodPost, "/api/v1/transfers", alice, map[string]any{
			"operation_id": id, "to": "0xbob0001", "value": 100,
		})
		require.Equal(t, http.StatusCreated, status)

		results := make(chan int, 2)
		fire := func(path, token string) {
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := app.server.Client().Do(req)
			if err != nil {
				results <- 0
				return
			}
			resp.Body.Close()
			results <- resp.StatusCode
		}
		go fire("/api/v1/transfers/"+id+"/cancel", alice)
		go fire("/api/v1/transfers/"+id+"/process", op)

		first, second := <-results, <-results
		codes := []int{first, second}
		assert.Contains(t, codes, http.StatusOK)
		assert.Contains(t, codes, http.StatusConflict)
	}

	// Every cancelled order released its hold; every processed one still
	// reserves it.
	acct := app.account(t, alice, "0xalice01")
	held, ok := acct["held_balance"].(float64)
	require.True(t, ok)
	assert.EqualValues(t, 0, int64(held)%100)
	assert.EqualValues(t, 1000, acct["balance"])
}
