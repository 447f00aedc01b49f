// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that returns reasonable test values
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Call recording for assertions
//   - Reset methods for test isolation
//
// # Usage Example
//
//	func TestEnricher(t *testing.T) {
//		fetcher := mocks.NewTextFetcher()
//		fetcher.SetText("https://example.com/a", "full text")
//
//		e := enrichment.NewEnricher(fetcher, nil, nil, enrichment.Options{}, nil)
//		// ... test enrichment behavior
//	}
//
// # Available Mocks
//
//   - TextFetcher: implements ports.TextFetcher
//   - LLMCaller: implements ports.LLMCaller
//   - MetricsSink: implements ports.MetricsSink
//   - ItemStore: implements ports.ItemStore
//   - DigestStore: implements ports.DigestStore
//   - UsageStore: implements ports.UsageStore
//
// Additional mocks can be added as needed following the same patterns.
package mocks
