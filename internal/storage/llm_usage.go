package db

import (
	"context"
	"fmt"
)

// LLMUsage is one day of LLM usage for a tenant and model.
type LLMUsage struct {
	Date             string
	TenantID         string
	Provider         string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	RequestCount     int
}

// IncrementRequests counts one successful LLM request against the tenant's
// budget for the current day.
func (db *DB) IncrementRequests(ctx context.Context, tenantID, provider, model string, promptTokens, completionTokens int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO llm_usage (date, tenant_id, provider, model, prompt_tokens, completion_tokens, request_count)
		VALUES (CURRENT_DATE, $1, $2, $3, $4, $5, 1)
		ON CONFLICT (date, tenant_id, provider, model)
		DO UPDATE SET
			prompt_tokens = llm_usage.prompt_tokens + EXCLUDED.prompt_tokens,
			completion_tokens = llm_usage.completion_tokens + EXCLUDED.completion_tokens,
			request_count = llm_usage.request_count + 1,
			updated_at = now()
	`, tenantID, provider, model, promptTokens, completionTokens)
	if err != nil {
		return fmt.Errorf("increment llm usage: %w", err)
	}

	return nil
}

// GetDailyRequests returns the number of LLM requests the tenant made today.
func (db *DB) GetDailyRequests(ctx context.Context, tenantID string) (int, error) {
	var count int64

	err := db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(request_count), 0)::bigint
		FROM llm_usage
		WHERE date = CURRENT_DATE AND tenant_id = $1
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get daily llm requests: %w", err)
	}

	return int(count), nil
}

// GetDailyUsage returns today's usage rows across tenants.
func (db *DB) GetDailyUsage(ctx context.Context) ([]LLMUsage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT date::text, tenant_id, provider, model, prompt_tokens, completion_tokens, request_count
		FROM llm_usage
		WHERE date = CURRENT_DATE
		ORDER BY tenant_id, provider, model
	`)
	if err != nil {
		return nil, fmt.Errorf("get daily llm usage: %w", err)
	}
	defer rows.Close()

	var usage []LLMUsage

	for rows.Next() {
		var u LLMUsage
		if err := rows.Scan(&u.Date, &u.TenantID, &u.Provider, &u.Model, &u.PromptTokens, &u.CompletionTokens, &u.RequestCount); err != nil {
			return nil, fmt.Errorf("scan llm usage row: %w", err)
		}

		usage = append(usage, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate llm usage rows: %w", err)
	}

	return usage, nil
}
