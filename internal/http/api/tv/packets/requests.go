package packets

// REQUESTS FOR /api/tv/displays/:name/*

// MediaEventRequest identifies the visit a player report belongs to.
type MediaEventRequest struct {
	VisitID uint64 `json:"visit_id" binding:"required"`
	Reason  string `json:"reason"`
}
