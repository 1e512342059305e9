package sanctions

// Entry is one row of the static sanctions list.
type Entry struct {
	Name       string
	Country    string
	ListSource string
	Type       string
}

// List is the read-only sanctions table. Order matters: the first entry above
// the similarity threshold wins.
type List []Entry
