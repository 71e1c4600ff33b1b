package controllers

import (
	"fmt"

	"github.com/rzbill/docket/internal/indexing"
	"github.com/rzbill/docket/internal/tasks"
)

// enqueueReq is the JSON form of a task. Keys feed remove-from-index and
// reduce-index; Etags feed touch-references.
type enqueueReq struct {
	Kind    string            `json:"kind"`
	IndexID *int32            `json:"indexId"`
	Keys    []string          `json:"keys"`
	Etags   map[string]uint64 `json:"etags"`
}

func (r enqueueReq) task() (tasks.Task, error) {
	kind, err := tasks.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	if r.IndexID == nil || *r.IndexID < 0 {
		return nil, fmt.Errorf("%s requires a non-negative indexId", kind)
	}
	index := *r.IndexID
	switch kind {
	case tasks.KindRemoveFromIndex, tasks.KindReduceIndex:
		if len(r.Keys) == 0 {
			return nil, fmt.Errorf("%s requires keys", kind)
		}
		if kind == tasks.KindReduceIndex {
			return tasks.NewReduce(index, r.Keys...), nil
		}
		return tasks.NewRemoveFromIndex(index, r.Keys...), nil
	default:
		t := tasks.NewTouchReferences(index)
		for k, etag := range r.Etags {
			t.Touch(k, etag)
		}
		for _, k := range r.Keys {
			t.Touch(k, 0)
		}
		return t, nil
	}
}

type enqueueResp struct {
	ID uint64 `json:"id"`
}

type listResp struct {
	Tasks []tasks.TaskMetadata `json:"tasks"`
}

type statsResp struct {
	HasTasks         bool   `json:"hasTasks"`
	ApproximateCount int64  `json:"approximateCount"`
	LastID           uint64 `json:"lastId"`
}

type drainResp struct {
	indexing.CycleStats
	Error string `json:"error,omitempty"`
}

type indexCreateReq struct {
	Name string `json:"name"`
}

type dropResp struct {
	TasksRemoved int `json:"tasksRemoved"`
}
