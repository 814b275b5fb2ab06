package port

type SearchQuery struct {
	Query string
	Limit int
	Skip  int
}

type SearchRecord struct {
	ID     string
	Order  []float64
	Fields map[string]interface{}
}

type SearchResult struct {
	Total   uint64
	Records []*SearchRecord
}
