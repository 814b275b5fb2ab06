package model

// Emission is one (key, value) pair produced by a map invocation.
// Fulltext emissions are routed to the search index instead of the
// regular view index.
type Emission struct {
	DocID    string
	Key      interface{}
	Value    interface{}
	Fulltext bool
}

// EmissionList collects emissions in emit call order.
type EmissionList struct {
	emissions []*Emission
}

func (l *EmissionList) Emit(e *Emission) {
	l.emissions = append(l.emissions, e)
}

func (l *EmissionList) Emissions() []*Emission {
	return l.emissions
}

func (l *EmissionList) Len() int {
	return len(l.emissions)
}
