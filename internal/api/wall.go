package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videowall/internal/api/models"
	"github.com/smazurov/videowall/internal/wall"
)

func (s *Server) registerWallRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-wall",
		Method:      http.MethodGet,
		Path:        "/api/wall",
		Summary:     "Wall status",
		Description: "Grid layout, pause state and per-slot stream status",
		Tags:        []string{"wall"},
	}, func(_ context.Context, _ *struct{}) (*models.WallResponse, error) {
		return &models.WallResponse{Body: s.wallData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reshuffle-wall",
		Method:      http.MethodPost,
		Path:        "/api/wall/reshuffle",
		Summary:     "Reshuffle",
		Description: "Stop every stream and assign a new random permutation of the catalog",
		Tags:        []string{"wall"},
		Errors:      []int{409, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.WallResponse, error) {
		// Old streams are gone once the reshuffle starts; a client hanging up
		// must not abort opening the new ones.
		if err := s.wall.Reshuffle(context.WithoutCancel(ctx)); err != nil {
			return nil, toHumaError(err)
		}
		return &models.WallResponse{Body: s.wallData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "pause-wall",
		Method:      http.MethodPost,
		Path:        "/api/wall/pause",
		Summary:     "Pause",
		Description: "Freeze every cell on its current frame",
		Tags:        []string{"wall"},
	}, func(_ context.Context, _ *struct{}) (*models.PauseResponse, error) {
		s.wall.Pause()
		return &models.PauseResponse{Body: models.PauseData{Paused: s.wall.Paused()}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "resume-wall",
		Method:      http.MethodPost,
		Path:        "/api/wall/resume",
		Summary:     "Resume",
		Description: "Resume playback after a pause",
		Tags:        []string{"wall"},
	}, func(_ context.Context, _ *struct{}) (*models.PauseResponse, error) {
		s.wall.Resume()
		return &models.PauseResponse{Body: models.PauseData{Paused: s.wall.Paused()}}, nil
	})
}

func (s *Server) wallData() models.WallData {
	w, h := s.wall.Grid()
	status := s.wall.Status()

	data := models.WallData{
		GridWidth:  w,
		GridHeight: h,
		Paused:     s.wall.Paused(),
		Sources:    len(s.wall.Catalog()),
		Slots:      make([]models.SlotData, 0, len(status)),
	}
	for _, st := range status {
		if st.Path != "" {
			data.Active++
		}
		data.Slots = append(data.Slots, domainToAPISlot(st))
	}
	return data
}

func domainToAPISlot(st wall.SlotStatus) models.SlotData {
	return models.SlotData{
		Index:           st.Index,
		Row:             st.Row,
		Col:             st.Col,
		Path:            st.Path,
		State:           st.State,
		Queued:          st.Queued,
		Capacity:        st.Capacity,
		FrameIntervalMs: float64(st.FrameInterval) / float64(time.Millisecond),
		Decoded:         st.Decoded,
		Loops:           st.Loops,
		DecodeErrors:    st.DecodeErrors,
		LastSeq:         st.LastSeq,
	}
}

// toHumaError maps pool errors to HTTP status codes.
func toHumaError(err error) error {
	switch {
	case wall.IsCode(err, wall.ErrCodePoolClosed):
		return huma.Error409Conflict("wall is shut down", err)
	case wall.IsCode(err, wall.ErrCodeSlotsBusy):
		return huma.Error409Conflict("slots are busy", err)
	default:
		return huma.Error500InternalServerError("reshuffle failed", err)
	}
}
