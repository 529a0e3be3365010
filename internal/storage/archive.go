// Package storage keeps security incidents raised by the guards.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/model"
)

const incidentPrefix = "incidents"

var _ model.IncidentRecorder = (*IncidentArchive)(nil)

// IncidentArchive writes incidents as JSON objects keyed by day.
type IncidentArchive struct {
	storage model.Storage
}

func NewIncidentArchive(storage model.Storage) *IncidentArchive {
	return &IncidentArchive{storage: storage}
}

// IncidentKey returns incidents/YYYY/MM/DD/<id>.json for the UTC day of at.
func IncidentKey(at time.Time, id uuid.UUID) string {
	return path.Join(incidentPrefix, at.UTC().Format("2006/01/02"), id.String()+".json")
}

func (a *IncidentArchive) Record(ctx context.Context, incident model.Incident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident: %w", err)
	}

	if err := a.storage.Upload(ctx, IncidentKey(incident.OccurredAt, incident.ID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to archive incident: %w", err)
	}
	return nil
}

// Get reads the incident id recorded on day. It returns model.ErrNotFound
// when nothing was archived under that key.
func (a *IncidentArchive) Get(ctx context.Context, day time.Time, id uuid.UUID) (model.Incident, error) {
	key := IncidentKey(day, id)

	ok, err := a.storage.Exists(ctx, key)
	if err != nil {
		return model.Incident{}, fmt.Errorf("failed to look up incident: %w", err)
	}
	if !ok {
		return model.Incident{}, model.ErrNotFound
	}

	rc, err := a.storage.Download(ctx, key)
	if err != nil {
		return model.Incident{}, fmt.Errorf("failed to download incident: %w", err)
	}
	defer rc.Close()

	var incident model.Incident
	if err := json.NewDecoder(rc).Decode(&incident); err != nil {
		return model.Incident{}, fmt.Errorf("failed to decode incident: %w", err)
	}
	return incident, nil
}
