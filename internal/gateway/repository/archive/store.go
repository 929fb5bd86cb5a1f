package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists exported plan files, keyed by plan ID and relative path.
type Store interface {
	Put(ctx context.Context, planID, path string, content []byte) error
	Get(ctx context.Context, planID, path string) ([]byte, error)
	GetURL(ctx context.Context, planID, path string) (string, error)
	List(ctx context.Context, planID string) ([]string, error)
}

var ErrNotFound = errors.New("archive: file not found")

// cleanKey validates and trims a plan ID and path pair.
func cleanKey(planID, path string) (string, string, error) {
	planID = strings.TrimSpace(planID)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if planID == "" {
		return "", "", fmt.Errorf("plan_id is required")
	}
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return planID, path, nil
}

func cleanPlanID(planID string) (string, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return "", fmt.Errorf("plan_id is required")
	}
	return planID, nil
}

func objectKey(planID, path string) string {
	return planID + "/" + path
}
