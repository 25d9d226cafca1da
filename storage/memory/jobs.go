// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package memory

import (
	"context"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/storage"
)

func (s *Store) CreateJob(ctx context.Context, job *core.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, existing := range s.jobs {
		if existing.DocumentID == job.DocumentID && !existing.Status.IsTerminal() {
			return storage.ErrConflict
		}
	}
	j := copyJob(job)
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	s.jobs[j.ID] = j
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *core.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.jobs[job.ID]; !ok {
		return storage.ErrNotFound
	}
	j := copyJob(job)
	j.UpdatedAt = time.Now().UTC()
	s.jobs[job.ID] = j
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*core.ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyJob(job), nil
}

func (s *Store) GetActiveJob(ctx context.Context, docID string) (*core.ProcessingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	for _, job := range s.jobs {
		if job.DocumentID == docID && !job.Status.IsTerminal() {
			return copyJob(job), nil
		}
	}
	return nil, storage.ErrNotFound
}

func copyJob(job *core.ProcessingJob) *core.ProcessingJob {
	out := *job
	return &out
}
