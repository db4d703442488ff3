package handler

import "revalidation/internal/cycle/models"

type RenewalResponse struct {
	Snapshot *models.Snapshot `json:"snapshot"`
	Next     *models.Cycle    `json:"next_cycle"`
}

type HistoryResponse struct {
	Cycles []*models.Cycle `json:"cycles"`
}
