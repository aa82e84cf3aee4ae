package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"emotion-diary/internal/config"
	"emotion-diary/internal/domain"
	"emotion-diary/internal/llm"
	"emotion-diary/internal/repository"
	"emotion-diary/internal/service"
	"emotion-diary/internal/speech"
)

const dateLayout = "2006-01-02"

type analyzeOptions struct {
	userID    string
	date      string
	text      string
	audioPath string
	variant   string
	save      bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one diary text or audio file through the model",
		Long: `Analyze builds the prompt for the configured variant, calls the model once
and prints the normalized reading. With --save the record is upserted for uid+date.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "uid", "cli", "User id used for the palette and the saved record")
	cmd.Flags().StringVar(&opts.date, "date", "", "Diary date (defaults to today, YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.text, "text", "t", "", "Diary text (use - to read stdin)")
	cmd.Flags().StringVarP(&opts.audioPath, "audio", "a", "", "Audio file to transcribe instead of --text")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "Override DIARY_VARIANT (coordinate/level/traits/color)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Persist the reading synchronously")
	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	ctx := cmd.Context()
	logger := root.logger

	if (opts.text == "") == (opts.audioPath == "") {
		return errors.New("exactly one of --text or --audio is required")
	}
	date := opts.date
	if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("invalid --date %q: %w", date, err)
	}

	cfg, err := root.analysisConfig()
	if err != nil {
		return err
	}
	if opts.variant != "" {
		cfg.DiaryVariant = opts.variant
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var (
		palettes service.PaletteResolver
		diaries  repository.DiaryRepository
		blobs    service.BlobStore
	)
	if root.databaseURL != "" {
		pool, err := root.openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		palettes = service.NewPaletteService(logger, repository.NewPgPaletteRepository(pool))
		diaries = repository.NewPgDiaryRepository(pool)
		blobs = repository.NewPgBlobRepository(pool)
	} else if opts.save {
		return errors.New("--save requires a database url")
	}

	source := domain.SourceText
	text := opts.text
	var transcript string
	if opts.audioPath != "" {
		transcript, err = transcribeFile(ctx, logger, cfg, blobs, opts.userID, date, opts.audioPath)
		if err != nil {
			return err
		}
		text = transcript
		source = domain.SourceAudio
	} else if text == "-" {
		raw, err := readAllStdin(cmd)
		if err != nil {
			return err
		}
		text = raw
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("diary text is empty")
	}

	pipeline, err := newPipeline(ctx, logger, cfg, palettes)
	if err != nil {
		return err
	}
	reading, err := pipeline.Run(ctx, opts.userID, text)
	if err != nil {
		return err
	}

	record := domain.DiaryRecord{
		UserID:    opts.userID,
		Date:      date,
		Text:      text,
		Source:    source,
		Reading:   reading,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if opts.save {
		service.NewSyncResultStore(logger, diaries, 0).Save(record)
	}

	out := record.Fields()
	delete(out, "updated_at")
	if transcript != "" {
		out["transcript"] = transcript
	}
	return root.write(cmd.OutOrStdout(), out)
}

func newPipeline(ctx context.Context, logger *zap.Logger, cfg *config.AnalysisConfig, palettes service.PaletteResolver) (*service.EmotionColorPipeline, error) {
	client, err := llm.NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	var opts []service.PipelineOption
	if cfg.ColorSource == config.ColorSourcePalette {
		opts = append(opts, service.WithPaletteColorSource())
	}
	return service.NewEmotionColorPipeline(logger, cfg.Variant(), client, palettes, opts...)
}

func transcribeFile(ctx context.Context, logger *zap.Logger, cfg *config.AnalysisConfig, blobs service.BlobStore, userID, date, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	transcriber, err := speech.NewTranscriber(ctx, cfg, logger)
	if err != nil {
		return "", fmt.Errorf("transcriber: %w", err)
	}
	audio := service.NewAudioService(logger, blobs, transcriber, cfg.TranscribeTimeout, cfg.MaxAudioBytes)
	result, err := audio.Transcribe(ctx, userID, date, service.AudioUpload{
		Filename:    filepath.Base(path),
		ContentType: audioContentType(path),
		Data:        data,
	})
	if err != nil {
		return "", err
	}
	return result.Transcript, nil
}

func audioContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	}
	return "application/octet-stream"
}

func readAllStdin(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
