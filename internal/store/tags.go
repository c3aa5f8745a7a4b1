package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/af-corp/compass-router/internal/types"
)

// GetCapabilityTag fetches a tag by id.
func (s *Store) GetCapabilityTag(ctx context.Context, tagID string) (*types.CapabilityTag, error) {
	var t types.CapabilityTag
	var modelsJSON, skillsJSON []byte
	var protocol *string

	err := s.db.QueryRow(ctx, `
		SELECT tag_id, category, priority, required_protocol,
		       required_models, required_skills,
		       requires_vision, requires_function_calling,
		       requires_extended_thinking, requires_streaming,
		       max_cost_per_m_token, is_active, created_at, updated_at
		FROM capability_tags
		WHERE tag_id = $1 AND NOT is_deleted
	`, tagID).Scan(
		&t.TagID, &t.Category, &t.Priority, &protocol,
		&modelsJSON, &skillsJSON,
		&t.RequiresVision, &t.RequiresFunctionCalling,
		&t.RequiresExtendedThinking, &t.RequiresStreaming,
		&t.MaxCostPerMToken, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, classify("capability_tag", tagID, err)
	}

	if protocol != nil {
		t.RequiredProtocol = types.Protocol(*protocol)
	}
	if len(modelsJSON) > 0 {
		if err := json.Unmarshal(modelsJSON, &t.RequiredModels); err != nil {
			return nil, classify("capability_tag", tagID, err)
		}
	}
	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &t.RequiredSkills); err != nil {
			return nil, classify("capability_tag", tagID, err)
		}
	}
	return &t, nil
}

// ListCapabilityTags returns all live tags ordered by priority.
func (s *Store) ListCapabilityTags(ctx context.Context) ([]types.CapabilityTag, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tag_id, category, priority, required_protocol,
		       required_models, required_skills,
		       requires_vision, requires_function_calling,
		       requires_extended_thinking, requires_streaming,
		       max_cost_per_m_token, is_active, created_at, updated_at
		FROM capability_tags
		WHERE NOT is_deleted
		ORDER BY priority DESC, tag_id
	`)
	if err != nil {
		return nil, classify("capability_tag", "", err)
	}
	defer rows.Close()

	var out []types.CapabilityTag
	for rows.Next() {
		var t types.CapabilityTag
		var modelsJSON, skillsJSON []byte
		var protocol *string
		if err := rows.Scan(
			&t.TagID, &t.Category, &t.Priority, &protocol,
			&modelsJSON, &skillsJSON,
			&t.RequiresVision, &t.RequiresFunctionCalling,
			&t.RequiresExtendedThinking, &t.RequiresStreaming,
			&t.MaxCostPerMToken, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, classify("capability_tag", "", err)
		}
		if protocol != nil {
			t.RequiredProtocol = types.Protocol(*protocol)
		}
		if len(modelsJSON) > 0 {
			if err := json.Unmarshal(modelsJSON, &t.RequiredModels); err != nil {
				return nil, classify("capability_tag", t.TagID, err)
			}
		}
		if len(skillsJSON) > 0 {
			if err := json.Unmarshal(skillsJSON, &t.RequiredSkills); err != nil {
				return nil, classify("capability_tag", t.TagID, err)
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertCapabilityTag stores a tag.
func (s *Store) UpsertCapabilityTag(ctx context.Context, t *types.CapabilityTag) error {
	modelsJSON, err := json.Marshal(t.RequiredModels)
	if err != nil {
		return classify("capability_tag", t.TagID, err)
	}
	skillsJSON, err := json.Marshal(t.RequiredSkills)
	if err != nil {
		return classify("capability_tag", t.TagID, err)
	}
	var protocol *string
	if t.RequiredProtocol != "" {
		v := string(t.RequiredProtocol)
		protocol = &v
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO capability_tags (
			tag_id, category, priority, required_protocol,
			required_models, required_skills,
			requires_vision, requires_function_calling,
			requires_extended_thinking, requires_streaming,
			max_cost_per_m_token, is_active, is_deleted, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE,NOW(),NOW())
		ON CONFLICT (tag_id) DO UPDATE SET
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			required_protocol = EXCLUDED.required_protocol,
			required_models = EXCLUDED.required_models,
			required_skills = EXCLUDED.required_skills,
			requires_vision = EXCLUDED.requires_vision,
			requires_function_calling = EXCLUDED.requires_function_calling,
			requires_extended_thinking = EXCLUDED.requires_extended_thinking,
			requires_streaming = EXCLUDED.requires_streaming,
			max_cost_per_m_token = EXCLUDED.max_cost_per_m_token,
			is_active = EXCLUDED.is_active,
			is_deleted = FALSE,
			updated_at = NOW()
	`, t.TagID, t.Category, t.Priority, protocol,
		modelsJSON, skillsJSON,
		t.RequiresVision, t.RequiresFunctionCalling,
		t.RequiresExtendedThinking, t.RequiresStreaming,
		t.MaxCostPerMToken, t.IsActive)
	return classify("capability_tag", t.TagID, err)
}

// DeleteCapabilityTag soft-deletes a tag.
func (s *Store) DeleteCapabilityTag(ctx context.Context, tagID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE capability_tags SET is_deleted = TRUE, updated_at = NOW()
		WHERE tag_id = $1 AND NOT is_deleted
	`, tagID)
	if err != nil {
		return classify("capability_tag", tagID, err)
	}
	if tag.RowsAffected() == 0 {
		return &Error{Kind: KindNotFound, Entity: "capability_tag", Key: tagID, Err: pgx.ErrNoRows}
	}
	return nil
}
