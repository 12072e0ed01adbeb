package pruning

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/horarium/pkg/repository"
)

const columns = "id, content_hash, lines, ml_indices, v2_indices, human_indices, created_at, updated_at"

func scanPruning(s repository.Scanner) (Pruning, error) {
	var (
		p                    Pruning
		lines, ml, v2, human []byte
	)
	if err := s.Scan(&p.ID, &p.ContentHash, &lines, &ml, &v2, &human, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}

	if err := json.Unmarshal(lines, &p.Lines); err != nil {
		return p, fmt.Errorf("decode lines: %w", err)
	}
	if err := json.Unmarshal(v2, &p.V2Indices); err != nil {
		return p, fmt.Errorf("decode v2 indices: %w", err)
	}
	var err error
	if p.MLIndices, err = decodeIndices(ml); err != nil {
		return p, fmt.Errorf("decode ml indices: %w", err)
	}
	if p.HumanIndices, err = decodeIndices(human); err != nil {
		return p, fmt.Errorf("decode human indices: %w", err)
	}
	return p, nil
}

// decodeIndices keeps SQL NULL distinct from an empty selection.
func decodeIndices(raw []byte) ([]int, error) {
	if raw == nil {
		return nil, nil
	}
	idx := []int{}
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// encodeIndices renders nil as SQL NULL.
func encodeIndices(idx []int) (any, error) {
	if idx == nil {
		return nil, nil
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
