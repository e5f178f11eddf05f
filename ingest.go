package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/denisb0/resource_catalog/models"
	"github.com/denisb0/resource_catalog/storage"
)

type resourceWriter interface {
	Insert(ctx context.Context, r models.Resource) error
	HasFingerprint(ctx context.Context, shash string) (bool, error)
}

type ingestStats struct {
	Messages   int `json:"messages"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// decodeMessages accepts a JSON array of messages or a stream of message
// objects, one after another.
func decodeMessages(r io.Reader) ([]models.Message, error) {
	br := bufio.NewReader(r)

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var messages []models.Message
		if err := dec.Decode(&messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
		return messages, nil
	}

	var messages []models.Message
	for {
		var msg models.Message
		err := dec.Decode(&msg)
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode message %d: %w", len(messages), err)
		}
		messages = append(messages, msg)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// ingest builds a resource from every message and stores it. Messages with
// malformed embeds or nothing to store are counted as rejected; a fingerprint
// already in the store is skipped unless allowDuplicates is set. Backend
// failures other than validation stop the run.
func ingest(ctx context.Context, w resourceWriter, messages []models.Message, allowDuplicates bool, log *zap.Logger) (ingestStats, error) {
	var stats ingestStats

	for _, msg := range messages {
		stats.Messages++

		resource, err := models.BuildResource(msg)
		if err != nil {
			log.Warn("message rejected", zap.String("message_id", msg.ID), zap.Error(err))
			stats.Rejected++
			continue
		}

		if !allowDuplicates && resource.Insertable() {
			exists, err := w.HasFingerprint(ctx, resource.Shash)
			if err != nil {
				return stats, err
			}
			if exists {
				log.Debug("duplicate resource", zap.String("message_id", msg.ID), zap.String("shash", resource.Shash))
				stats.Duplicates++
				continue
			}
		}

		err = w.Insert(ctx, resource)
		switch {
		case errors.Is(err, storage.ErrValidation):
			log.Debug("message has nothing to store", zap.String("message_id", msg.ID), zap.Error(err))
			stats.Rejected++
		case err != nil:
			return stats, err
		default:
			stats.Inserted++
		}
	}

	return stats, nil
}
