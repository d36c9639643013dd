package cities

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/debuglog"
)

const recordsPath = "/api/records/1.0/search/"

// HTTPSource reads pages from an OpenDataSoft records endpoint.
type HTTPSource struct {
	client   *resty.Client
	dataset  string
	pageSize int
}

func NewHTTPSource(cfg *config.Config) (*HTTPSource, error) {
	baseURL, err := cfg.SourceEndpoint()
	if err != nil {
		return nil, fmt.Errorf("city source endpoint: %w", err)
	}

	pageSize := cfg.Source.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Source.HTTPTimeout).
		SetHeader("User-Agent", cfg.Source.UserAgent).
		SetHeader("Accept", "application/json")

	return &HTTPSource{
		client:   client,
		dataset:  cfg.Source.Dataset,
		pageSize: pageSize,
	}, nil
}

func (s *HTTPSource) PageSize() int {
	return s.pageSize
}

// FetchPage requests rows [index*size, index*size+size). Every call goes to
// the network.
func (s *HTTPSource) FetchPage(ctx context.Context, index int) (Page, error) {
	if index < 0 {
		return Page{}, fmt.Errorf("negative page index %d", index)
	}

	log := debuglog.WithFields(map[string]any{"page": index, "dataset": s.dataset})
	log.Debugf("fetching city page")

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset": s.dataset,
			"rows":    strconv.Itoa(s.pageSize),
			"start":   strconv.Itoa(index * s.pageSize),
		}).
		Get(recordsPath)
	if err != nil {
		return Page{}, &TransportError{Page: index, Err: err}
	}

	if resp.IsError() {
		return Page{}, &TransportError{
			Page:       index,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	records, onWire, err := decodeRecords(resp.Body(), index)
	if err != nil {
		return Page{}, &TransportError{Page: index, StatusCode: resp.StatusCode(), Err: err}
	}

	log.Infof("fetched %d cities (%d on wire)", len(records), onWire)

	return Page{
		Index:   index,
		Records: records,
		Last:    onWire < s.pageSize,
	}, nil
}
