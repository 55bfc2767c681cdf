package qdrant

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"duplicalis/internal/config"
	"duplicalis/internal/indexer"
	"duplicalis/internal/models"
	"duplicalis/internal/utils"

	"github.com/qdrant/go-client/qdrant"
)

const (
	defaultCollectionName = "duplicalis_default"
	collectionPrefix      = "duplicalis_"
	BatchSize             = 64
)

// CollectionName returns the collection for a project. An empty projectID
// maps to the shared default collection.
func CollectionName(projectID string) string {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return defaultCollectionName
	}
	if len(projectID) > 16 {
		projectID = projectID[:16]
	}
	return collectionPrefix + projectID
}

// PointID derives a stable numeric point id from a component id.
func PointID(componentID string) uint64 {
	h := sha256.Sum256([]byte(componentID))
	return binary.BigEndian.Uint64(h[:8])
}

// BuildPoints turns every entry into a point carrying its fixed-layout
// vector, so styled and unstyled components fit one collection. Entries
// without any vector are skipped.
func BuildPoints(entries []models.EmbeddingEntry, root string, w config.Weights) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		vector := indexer.FixedVector(e, w)
		if len(vector) == 0 {
			continue
		}
		c := e.Component
		data := make([]float32, len(vector))
		for i, x := range vector {
			data[i] = float32(x)
		}

		payload := map[string]any{
			"component_id":   c.ID,
			"name":           c.Name,
			"file_path":      utils.RelativePath(root, c.FilePath),
			"start_line":     c.Loc.StartLine,
			"end_line":       c.Loc.EndLine,
			"is_wrapper":     c.IsWrapper,
			"has_styles":     e.HasStyles,
			"jsx_tags":       c.JSXTags,
			"hooks":          c.Hooks,
			"component_refs": c.ComponentRefs,
		}

		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Num{Num: PointID(c.ID)},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: data},
				},
			},
			Payload: MapToPayload(payload),
		})
	}
	return points
}

// Export upserts the fixed-layout vectors of entries into collection in
// batches and returns the number of points written.
func (c *Client) Export(ctx context.Context, collection string, entries []models.EmbeddingEntry, root string, w config.Weights) (int, error) {
	points := BuildPoints(entries, root, w)
	if len(points) == 0 {
		return 0, nil
	}

	size := uint64(len(points[0].GetVectors().GetVector().GetData()))
	if err := c.EnsureCollection(ctx, collection, size); err != nil {
		return 0, err
	}

	for start := 0; start < len(points); start += BatchSize {
		end := min(start+BatchSize, len(points))
		if err := c.Upsert(ctx, collection, points[start:end]); err != nil {
			return start, fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return len(points), nil
}
