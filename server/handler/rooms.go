package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tankarena/server/domain"
)

// RoomLister は稼働中のルーム一覧を返します。
type RoomLister interface {
	Rooms() []domain.RoomInfo
}

type roomsResponse struct {
	Rooms []domain.RoomInfo `json:"rooms"`
}

func NewRoomsHandler(lister RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := lister.Rooms()
		if rooms == nil {
			rooms = []domain.RoomInfo{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(roomsResponse{Rooms: rooms}); err != nil {
			slog.ErrorContext(r.Context(), "failed to write room list", "err", err)
		}
	}
}
