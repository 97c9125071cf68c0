package planner

import (
	"context"
	"log/slog"
	"strings"

	"filebutler/internal/config"
	"filebutler/internal/logging"
	"filebutler/internal/organize"
	"filebutler/internal/services"
)

// FileInfo is the metadata slice the planner shares with the model per file.
type FileInfo struct {
	ID      int64
	Name    string
	Ext     string
	Size    int64
	Label   string
	Caption string
	Tags    []string
}

// Request describes one plan request for a batch of files in a folder.
type Request struct {
	Files []FileInfo
	// Instruction is the user's organization instruction for the folder.
	Instruction string
	// FolderName is the base name of the watched folder; the model is told
	// not to create a folder of the same name.
	FolderName string
	// ExistingFolders, when non-empty, restricts the plan to those folders.
	ExistingFolders []string
}

// Service requests organization plans. A (nil, nil) return means the planner
// produced no usable plan and the batch should finish without moves.
type Service interface {
	RequestPlan(ctx context.Context, req Request) (*organize.Plan, error)
}

type service struct {
	client *Client
	logger *slog.Logger
}

// NewService builds the production planner on top of the HTTP client.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := NewClient(ClientConfig{
		APIKey:         cfg.Planner.APIKey,
		BaseURL:        cfg.Planner.BaseURL,
		Model:          cfg.Planner.Model,
		Referer:        cfg.Planner.Referer,
		Title:          cfg.Planner.Title,
		TimeoutSeconds: cfg.Planner.TimeoutSeconds,
	}, opts...)
	return &service{
		client: client,
		logger: logger.With(logging.String(logging.FieldComponent, "planner")),
	}
}

func (s *service) RequestPlan(ctx context.Context, req Request) (*organize.Plan, error) {
	if len(req.Files) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(s.client.cfg.APIKey) == "" {
		return nil, services.Wrap(
			services.ErrConfiguration,
			"planning",
			"check credentials",
			"Planner API key not configured; set planner.api_key or FILEBUTLER_PLANNER_API_KEY",
			nil,
		)
	}

	instruction := ComposeInstruction(req.Instruction, req.FolderName, req.ExistingFolders)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info(
		"requesting organization plan",
		logging.Int("files", len(req.Files)),
		logging.Bool("restricted", len(req.ExistingFolders) > 0),
	)

	content, err := s.client.CompleteJSON(ctx, systemPrompt, buildUserPrompt(instruction, req.Files))
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool,
			"planning",
			"request plan",
			"Planner request failed; check network connectivity and API key",
			err,
		)
	}

	plan, err := organize.DecodePlan([]byte(ExtractJSONPayload(content)))
	if err != nil {
		logger.Warn("planner returned undecodable payload", logging.Error(err))
		return nil, nil
	}
	if plan.IsEmpty() {
		logger.Warn("planner returned an empty plan")
		return nil, nil
	}
	logger.Info(
		"received organization plan",
		logging.Int("folders", len(plan.Order)),
		logging.Int("files", plan.FileCount()),
	)
	return plan, nil
}
