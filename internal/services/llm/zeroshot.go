package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/portent/internal/common"
	"github.com/ternarybob/portent/internal/interfaces"
	"github.com/ternarybob/portent/internal/models"
	"golang.org/x/sync/errgroup"
)

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

// zeroShotResponse lists labels sorted by descending score
type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// postVerdict is the signed top-label score of one post
type postVerdict struct {
	label  string
	score  float64
	failed bool
}

// ZeroShotBackend scores posts one by one against a local zero-shot
// classification server and reduces them to a single chunk reply
type ZeroShotBackend struct {
	config  *common.ZeroShotConfig
	client  *http.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewZeroShotBackend creates the zero-shot backend
func NewZeroShotBackend(config *common.ZeroShotConfig, logger arbor.ILogger) (*ZeroShotBackend, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("zeroshot.endpoint is required")
	}
	if len(config.Labels) == 0 {
		return nil, fmt.Errorf("zeroshot.labels must not be empty")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}

	timeout := common.ParseDuration(config.Timeout, 5*time.Minute)

	logger.Debug().
		Str("endpoint", config.Endpoint).
		Strs("labels", config.Labels).
		Int("batch_size", config.BatchSize).
		Msg("Zero-shot scoring backend initialized")

	return &ZeroShotBackend{
		config:  config,
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (b *ZeroShotBackend) Name() string { return "zeroshot" }

// DefaultPolicy is omit: a chunk without any signal says nothing about the average
func (b *ZeroShotBackend) DefaultPolicy() models.FallbackPolicy { return models.PolicyOmit }

func (b *ZeroShotBackend) Score(ctx context.Context, request *interfaces.ScoringRequest) (string, error) {
	if request.Kind == interfaces.RequestSynthesis {
		return "", interfaces.ErrSynthesisUnsupported
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	posts := request.Posts
	if len(posts) == 0 && strings.TrimSpace(request.Text) != "" {
		posts = []string{request.Text}
	}

	verdicts := make([]postVerdict, len(posts))
	for start := 0; start < len(posts); start += b.config.BatchSize {
		end := start + b.config.BatchSize
		if end > len(posts) {
			end = len(posts)
		}

		var g errgroup.Group
		g.SetLimit(b.config.BatchSize)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				verdicts[i] = b.classifyPost(timeoutCtx, posts[i])
				return nil
			})
		}
		_ = g.Wait()

		if err := timeoutCtx.Err(); err != nil {
			return "", fmt.Errorf("zero-shot scoring interrupted: %w", err)
		}
	}

	return b.summarize(verdicts), nil
}

// classifyPost never fails: errors become a neutral verdict
func (b *ZeroShotBackend) classifyPost(ctx context.Context, post string) postVerdict {
	if strings.TrimSpace(post) == "" {
		return postVerdict{label: b.config.NeutralLabel}
	}

	result, err := b.classify(ctx, post)
	if err != nil {
		b.logger.Warn().Err(err).Str("post", truncate(post, 50)).Msg("Zero-shot classification failed for post")
		return postVerdict{label: b.config.NeutralLabel, failed: true}
	}
	if len(result.Labels) == 0 || len(result.Scores) == 0 {
		return postVerdict{label: b.config.NeutralLabel, failed: true}
	}

	verdict := postVerdict{label: result.Labels[0], score: result.Scores[0]}
	if verdict.label == b.config.NegativeLabel {
		verdict.score = -verdict.score
	}
	return verdict
}

func (b *ZeroShotBackend) classify(ctx context.Context, post string) (*zeroShotResponse, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     post,
		Parameters: zeroShotParameters{CandidateLabels: b.config.Labels},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp, respBody)
	}

	var parsed zeroShotResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// summarize writes a label tally and, when any post carried signal, a score marker
// holding the mean signed score of the non-neutral posts
func (b *ZeroShotBackend) summarize(verdicts []postVerdict) string {
	counts := make(map[string]int, len(b.config.Labels))
	failed := 0
	signal := 0
	sum := 0.0
	for _, v := range verdicts {
		counts[v.label]++
		if v.failed {
			failed++
		}
		if v.label == b.config.NeutralLabel {
			continue
		}
		signal++
		sum += v.score
	}

	parts := make([]string, 0, len(b.config.Labels))
	for _, label := range b.config.Labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Zero-shot labels over %d posts: %s", len(verdicts), strings.Join(parts, ", "))
	if failed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", failed)
	}
	sb.WriteString(".")

	if signal == 0 {
		sb.WriteString(" No post carried a future-outlook signal.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nscore:%.2f", sum/float64(signal))
	return sb.String()
}

func (b *ZeroShotBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// truncate keeps at most n runes of s
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
