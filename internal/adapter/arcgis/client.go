// Package arcgis publishes features to an ArcGIS hosted feature layer over
// the REST API.
package arcgis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// ErrPartialPublish means the layer was truncated but the append did not
// complete. The layer may be empty or hold only part of the new data.
var ErrPartialPublish = errors.New("layer truncated but append failed")

// Client talks to one feature layer, e.g.
// https://services.arcgis.com/<org>/arcgis/rest/services/<name>/FeatureServer/0.
type Client struct {
	layerURL   string
	token      string
	wkid       int
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a layer client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		layerURL:  strings.TrimRight(cfg.ArcGISLayerURL, "/"),
		token:     cfg.ArcGISToken,
		wkid:      cfg.ArcGISWKID,
		batchSize: cfg.BatchSize,
		httpClient: &http.Client{
			Timeout: cfg.ArcGISTimeout,
		},
		logger: logger,
	}
}

type restError struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

func (e *restError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Description
	}
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	return fmt.Sprintf("arcgis error %d: %s", e.Code, msg)
}

type editResult struct {
	ObjectID int        `json:"objectId"`
	Success  bool       `json:"success"`
	Error    *restError `json:"error"`
}

func (r editResult) err() error {
	if r.Error == nil {
		return errors.New("no error detail")
	}
	return r.Error
}

type editResponse struct {
	Error         *restError   `json:"error"`
	Success       *bool        `json:"success"`
	AddResults    []editResult `json:"addResults"`
	DeleteResults []editResult `json:"deleteResults"`
}

// Esri JSON polygon.
type polygon struct {
	Rings            [][][2]float64   `json:"rings"`
	SpatialReference spatialReference `json:"spatialReference"`
}

type spatialReference struct {
	WKID int `json:"wkid"`
}

type feature struct {
	Geometry   polygon        `json:"geometry"`
	Attributes map[string]any `json:"attributes"`
}

// Publish replaces the layer contents: every existing feature is deleted,
// then features are added in batches. There is no rollback; a failure after
// the delete returns an error wrapping ErrPartialPublish.
func (c *Client) Publish(ctx context.Context, features []domain.OutputFeature) error {
	if err := c.Truncate(ctx); err != nil {
		return err
	}
	added, err := c.Append(ctx, features)
	if err != nil {
		c.logger.Error("append failed after truncate, layer is incomplete",
			"added", added,
			"expected", len(features),
			"error", err,
		)
		return fmt.Errorf("%w: %d of %d features added: %w", ErrPartialPublish, added, len(features), err)
	}
	return nil
}

// Truncate deletes every feature of the layer.
func (c *Client) Truncate(ctx context.Context) error {
	form := url.Values{"where": {"1=1"}}
	resp, err := c.post(ctx, "deleteFeatures", form)
	if err != nil {
		return fmt.Errorf("truncate layer: %w", err)
	}
	if resp.Success != nil && !*resp.Success {
		return errors.New("truncate layer: server reported failure")
	}
	for _, r := range resp.DeleteResults {
		if !r.Success {
			return fmt.Errorf("truncate layer: delete object %d: %w", r.ObjectID, r.err())
		}
	}
	c.logger.Info("layer truncated", "deleted", len(resp.DeleteResults))
	return nil
}

// Append adds features in batches and returns how many were added before
// the first failure.
func (c *Client) Append(ctx context.Context, features []domain.OutputFeature) (int, error) {
	size := c.batchSize
	if size <= 0 {
		size = len(features)
	}

	added := 0
	for start := 0; start < len(features); start += size {
		end := min(start+size, len(features))
		payload, err := c.encode(features[start:end])
		if err != nil {
			return added, err
		}

		resp, err := c.post(ctx, "addFeatures", url.Values{
			"features":          {string(payload)},
			"rollbackOnFailure": {"true"},
		})
		if err != nil {
			return added, fmt.Errorf("add features %d-%d: %w", start, end-1, err)
		}
		if len(resp.AddResults) != end-start {
			return added, fmt.Errorf("add features %d-%d: got %d results", start, end-1, len(resp.AddResults))
		}
		for i, r := range resp.AddResults {
			if !r.Success {
				return added, fmt.Errorf("add feature %d: %w", start+i, r.err())
			}
		}
		added += end - start
		c.logger.Debug("batch appended", "from", start, "to", end-1)
	}

	c.logger.Info("features appended", "count", added)
	return added, nil
}

func (c *Client) encode(features []domain.OutputFeature) ([]byte, error) {
	out := make([]feature, len(features))
	for i, f := range features {
		attrs := f.Properties()
		// Date fields take epoch milliseconds.
		if f.Date != nil {
			attrs[domain.FieldDate] = f.Date.UnixMilli()
		}
		out[i] = feature{
			Geometry:   toEsriPolygon(f.Geometry, c.wkid),
			Attributes: attrs,
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	return b, nil
}

// toEsriPolygon flattens a multipolygon into Esri rings: outer rings
// clockwise, holes counter-clockwise.
func toEsriPolygon(mp orb.MultiPolygon, wkid int) polygon {
	p := polygon{Rings: [][][2]float64{}, SpatialReference: spatialReference{WKID: wkid}}
	for _, poly := range mp {
		for i, ring := range poly {
			if len(ring) == 0 {
				continue
			}
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			if ring.Orientation() != want {
				ring = ring.Clone()
				ring.Reverse()
			}
			coords := make([][2]float64, 0, len(ring)+1)
			for _, pt := range ring {
				coords = append(coords, [2]float64{pt.X(), pt.Y()})
			}
			if !ring.Closed() {
				coords = append(coords, [2]float64{ring[0].X(), ring[0].Y()})
			}
			p.Rings = append(p.Rings, coords)
		}
	}
	return p
}

func (c *Client) post(ctx context.Context, op string, form url.Values) (editResponse, error) {
	form.Set("f", "json")
	if c.token != "" {
		form.Set("token", c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.layerURL+"/"+op, strings.NewReader(form.Encode()))
	if err != nil {
		return editResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return editResponse{}, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return editResponse{}, fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, body)
	}

	var result editResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return editResponse{}, fmt.Errorf("decode %s response: %w", op, err)
	}
	if result.Error != nil {
		return editResponse{}, result.Error
	}

	c.logger.Debug("arcgis request", "op", op, "duration", time.Since(start))
	return result, nil
}
