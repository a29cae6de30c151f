package alert

type TriggerAlertRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Accuracy  *float64 `json:"acc"`
	Text      string   `json:"text"`
	Name      string   `json:"nome"`
	Phone     string   `json:"phone"`
	UserEmail string   `json:"user_email"`
}
