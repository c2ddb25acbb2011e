package tagpoll

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result describes one poll tick. CommsOk mirrors what was written to
// the bookkeeping tags; Missing lists payload fields the mapping could
// not place.
type Result struct {
	AssetID string
	CommsOk bool
	Written []string
	Missing []string
	Err     string
}

// Poller implements the downstream consumer contract: GET the asset's
// telemetry JSON and write recognized fields plus bookkeeping into the
// tag store. On any failure the comms-bad write is the unconditional
// recovery action; other fields are left untouched.
type Poller struct {
	client       *http.Client
	endpointBase string
	mapping      Mapping
	writer       TagWriter
	timeout      time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

func NewPoller(endpointBase string, mapping Mapping, writer TagWriter, timeout time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		client:       &http.Client{Timeout: timeout},
		endpointBase: strings.TrimRight(endpointBase, "/"),
		mapping:      mapping,
		writer:       writer,
		timeout:      timeout,
		now:          time.Now,
		logger:       logger.With(zap.String("component", "tagpoll")),
	}
}

// WithClock overrides the timestamp source. Test hook.
func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// PollOnce runs one tick for an asset. assetPath is the asset's folder
// in the tag hierarchy, e.g. "Assets/BESS-1".
func (p *Poller) PollOnce(assetID, assetPath string) Result {
	result, _ := NewTask(func() (*Result, error) {
		return p.fetchAndWrite(assetID, assetPath)
	}).
		// the HTTP client enforces the request timeout; the effect
		// timeout is a slightly wider backstop
		WithTimeout(p.timeout + time.Second).
		Recover(func(err error) Result {
			return p.markCommsBad(assetID, assetPath, err)
		}).
		Run()
	return result
}

func (p *Poller) fetchAndWrite(assetID, assetPath string) (*Result, error) {
	url := p.endpointBase + "/" + strings.TrimLeft(assetID, "/")
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	paths, values, missing := p.mapping.Resolve(assetPath, payload)
	paths = append(paths,
		assetPath+"/commsOk",
		assetPath+"/lastUpdateTs",
		assetPath+"/lastError")
	values = append(values, true, p.now().UTC().Format(time.RFC3339), "")

	if err := p.writer.WriteTags(paths, values); err != nil {
		return nil, fmt.Errorf("write tags: %w", err)
	}

	if len(missing) > 0 {
		p.logger.Warn("payload fields without tags skipped",
			zap.String("asset_id", assetID), zap.Strings("fields", missing))
	}
	return &Result{AssetID: assetID, CommsOk: true, Written: paths, Missing: missing}, nil
}

func (p *Poller) markCommsBad(assetID, assetPath string, cause error) Result {
	paths := []string{
		assetPath + "/commsOk",
		assetPath + "/lastError",
		assetPath + "/lastUpdateTs",
	}
	values := []any{false, cause.Error(), p.now().UTC().Format(time.RFC3339)}
	if err := p.writer.WriteTags(paths, values); err != nil {
		p.logger.Error("comms-bad write failed",
			zap.String("asset_id", assetID), zap.Error(err))
	}
	p.logger.Warn("poll failed", zap.String("asset_id", assetID), zap.Error(cause))
	return Result{AssetID: assetID, CommsOk: false, Written: paths, Err: cause.Error()}
}
