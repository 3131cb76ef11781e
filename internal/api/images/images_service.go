package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-pokedex-api/app/observability/metrics"
	"github.com/FACorreiaa/go-pokedex-api/internal/api"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

// Catalog is the part of the creature catalog images depend on.
type Catalog interface {
	Get(ctx context.Context, id int) (*types.CreatureView, error)
	SetImageURL(ctx context.Context, id int, url *string) error
}

type Uploaded struct {
	Filename string `json:"filename" example:"creature_25.png"`
	ImageURL string `json:"image_url" example:"/api/v1/pokemon/25/image"`
}

type ImageService struct {
	logger  *slog.Logger
	store   *Store
	catalog Catalog
}

func NewImageService(store *Store, catalog Catalog, logger *slog.Logger) *ImageService {
	return &ImageService{
		logger:  logger,
		store:   store,
		catalog: catalog,
	}
}

func imageURL(creatureID int) string {
	return fmt.Sprintf("/api/v1/pokemon/%d/image", creatureID)
}

// Upload stores the image of an existing creature and points its image_url at
// the download endpoint.
func (s *ImageService) Upload(ctx context.Context, creatureID int, contentType, originalName string, src io.Reader) (*Uploaded, error) {
	ctx, span := otel.Tracer("ImageService").Start(ctx, "Upload", trace.WithAttributes(
		attribute.Int("creature.id", creatureID),
		attribute.String("image.content_type", contentType),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Upload"), slog.Int("creatureID", creatureID))

	ext, err := Extension(contentType, originalName)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid image")
		return nil, err
	}
	if _, err = s.catalog.Get(ctx, creatureID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	name, size, err := s.store.Save(creatureID, ext, src)
	if err != nil {
		l.WarnContext(ctx, "Image not stored", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return nil, err
	}

	url := imageURL(creatureID)
	if err = s.catalog.SetImageURL(ctx, creatureID, &url); err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.Get().ImageUploadBytes.Record(ctx, size)
	l.InfoContext(ctx, "Image stored", slog.String("file", name), slog.Int64("bytes", size))
	span.SetStatus(codes.Ok, "Image stored")
	return &Uploaded{Filename: name, ImageURL: url}, nil
}

// Open returns the stored image; the caller closes it.
func (s *ImageService) Open(_ context.Context, creatureID int) (afero.File, string, error) {
	return s.store.Open(creatureID)
}

func (s *ImageService) Delete(ctx context.Context, creatureID int) error {
	removed, err := s.store.Remove(creatureID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("image of creature %d: %w", creatureID, api.ErrNotFound)
	}
	if err = s.catalog.SetImageURL(ctx, creatureID, nil); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Image deleted", slog.Int("creatureID", creatureID))
	return nil
}
