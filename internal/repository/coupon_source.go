package repository

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
)

// sourceLoadResult holds the result of loading a single source
type sourceLoadResult struct {
	index   int
	coupons []models.Coupon
	err     error
}

// LoadSources reads gzipped JSON-lines coupon files from URLs or local paths
// concurrently and adds them to the repository. Nothing is added unless every
// source loads. Later sources win when two define the same coupon ID.
func (r *InMemoryCouponRepository) LoadSources(ctx context.Context, sources []string) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}

	resultChan := make(chan sourceLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			coupons, err := loadSource(ctx, source)
			resultChan <- sourceLoadResult{
				index:   index,
				coupons: coupons,
				err:     err,
			}
		}(i, strings.TrimSpace(source))
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results maintaining order
	results := make([]sourceLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	for i, result := range results {
		if result.err != nil {
			return 0, fmt.Errorf("failed to load coupon source %d (%s): %w", i+1, sources[i], result.err)
		}
	}

	total := 0
	for _, result := range results {
		r.Upsert(result.coupons...)
		total += len(result.coupons)
	}
	return total, nil
}

func loadSource(ctx context.Context, source string) ([]models.Coupon, error) {
	body, err := openSource(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	gzReader, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzReader.Close()

	return parseCoupons(gzReader)
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return f, nil
	}

	client := &http.Client{Timeout: time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseCoupons reads one JSON coupon per line, skipping blank lines
func parseCoupons(r io.Reader) ([]models.Coupon, error) {
	var coupons []models.Coupon
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var c models.Coupon
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if c.ID == "" || c.Code == "" {
			return nil, fmt.Errorf("line %d: coupon id and code are required", lineNo)
		}
		if c.DiscountAmount < 0 || c.MinOrderAmount < 0 {
			return nil, fmt.Errorf("line %d: coupon %s has negative amounts", lineNo, c.Code)
		}
		coupons = append(coupons, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return coupons, nil
}
