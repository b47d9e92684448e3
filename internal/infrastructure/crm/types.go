package crm

const (
	propEmail     = "email"
	propFirstName = "firstname"
	propLastName  = "lastname"
)

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int             `json:"total"`
	Results []contactObject `json:"results"`
}

type contactObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type contactInput struct {
	Properties map[string]string `json:"properties"`
}

// errorBody is the CRM's structured error response
type errorBody struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
	Category      string `json:"category"`
}
