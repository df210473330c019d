package dto

import "STUDYHUB_BACK-END/internal/schools"

// SchoolListResponse lists schools from the study map
type SchoolListResponse struct {
	Schools []schools.Result `json:"schools"`
	Count   int              `json:"count"`
}
