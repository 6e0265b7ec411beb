package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mmeshcher/starfruit-system/internal/model"
)

type stubFetcher struct {
	data []byte
	err  error

	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

type stubSink struct {
	high    []model.HighValueReceiptRecord
	general []model.GeneralReceiptRecord

	highErr error
}

func (s *stubSink) SaveHighValueReceipt(ctx context.Context, rec model.HighValueReceiptRecord) error {
	if s.highErr != nil {
		return s.highErr
	}
	s.high = append(s.high, rec)
	return nil
}

func (s *stubSink) SaveGeneralReceipt(ctx context.Context, rec model.GeneralReceiptRecord) error {
	s.general = append(s.general, rec)
	return nil
}

func parsedEvent(totalCost string) *model.ParsedPOSEvent {
	return &model.ParsedPOSEvent{
		Header: model.POSHeader{
			ReceiptURL:  "http://x/r1",
			LocationID:  "STORE42",
			DateTime:    "2026-08-30T10:15:00",
			SalesNumber: "S-1001",
			TotalCost:   totalCost,
		},
		Details: []model.POSDetail{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
	}
}

func TestSummarize(t *testing.T) {
	summary, err := Summarize(parsedEvent("150.50"))
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if summary.TotalItems != 5 {
		t.Fatalf("totalItems = %d, want 5", summary.TotalItems)
	}
	if summary.TotalCostCents != 15050 {
		t.Fatalf("totalCostCents = %d, want 15050", summary.TotalCostCents)
	}
	if summary.StoreLocation != "STORE42" || summary.SalesNumber != "S-1001" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRoute_Classification(t *testing.T) {
	tests := []struct {
		name      string
		totalCost string
		threshold float64
		wantHigh  int
		wantGen   int
	}{
		{name: "above threshold", totalCost: "150", threshold: 100, wantHigh: 1, wantGen: 0},
		{name: "at threshold", totalCost: "100", threshold: 100, wantHigh: 0, wantGen: 1},
		{name: "below threshold", totalCost: "42.50", threshold: 100, wantHigh: 0, wantGen: 1},
		{name: "at fractional threshold", totalCost: "0.29", threshold: 0.29, wantHigh: 0, wantGen: 1},
		{name: "at fractional threshold mid-range", totalCost: "1.13", threshold: 1.13, wantHigh: 0, wantGen: 1},
		{name: "at fractional threshold large", totalCost: "149.95", threshold: 149.95, wantHigh: 0, wantGen: 1},
		{name: "cent above fractional threshold", totalCost: "1.14", threshold: 1.13, wantHigh: 1, wantGen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{data: []byte("img-bytes")}
			sink := &stubSink{}
			router := NewRouter(fetcher, sink, tt.threshold, zap.NewNop(), nil)

			if err := router.Route(context.Background(), parsedEvent(tt.totalCost)); err != nil {
				t.Fatalf("Route error: %v", err)
			}

			if len(sink.high) != tt.wantHigh || len(sink.general) != tt.wantGen {
				t.Fatalf("high/general = %d/%d, want %d/%d",
					len(sink.high), len(sink.general), tt.wantHigh, tt.wantGen)
			}
		})
	}
}

func TestRoute_HighValueEmbedsImage(t *testing.T) {
	fetcher := &stubFetcher{data: []byte("img-bytes")}
	sink := &stubSink{}
	router := NewRouter(fetcher, sink, 100, zap.NewNop(), nil)

	if err := router.Route(context.Background(), parsedEvent("150")); err != nil {
		t.Fatalf("Route error: %v", err)
	}

	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	want := base64.StdEncoding.EncodeToString([]byte("img-bytes"))
	if sink.high[0].ReceiptImage != want {
		t.Fatalf("receiptImage = %q, want %q", sink.high[0].ReceiptImage, want)
	}
}

func TestRoute_GeneralSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("must not be called")}
	sink := &stubSink{}
	router := NewRouter(fetcher, sink, 100, zap.NewNop(), nil)

	if err := router.Route(context.Background(), parsedEvent("99")); err != nil {
		t.Fatalf("Route error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetch calls = %d, want 0 for general receipts", fetcher.calls)
	}
}

func TestRoute_FetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("blob unreachable")}
	sink := &stubSink{}
	router := NewRouter(fetcher, sink, 100, zap.NewNop(), nil)

	err := router.Route(context.Background(), parsedEvent("150"))
	if !errors.Is(err, ErrReceiptFetch) {
		t.Fatalf("expected ErrReceiptFetch, got %v", err)
	}
	if len(sink.high) != 0 && len(sink.general) != 0 {
		t.Fatalf("no record must be written on fetch failure")
	}
}

func TestHTTPFetcher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-data"))
	}))
	defer ts.Close()

	fetcher := NewHTTPFetcher()

	data, err := fetcher.Fetch(context.Background(), ts.URL+"/r1")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(data) != "png-data" {
		t.Fatalf("data = %q, want png-data", data)
	}
}
