package model

// ChunkRef points back at one chunk used to ground an answer.
type ChunkRef struct {
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
}

// ChatTurn is one persisted question/answer exchange. Append-only;
// removed only by a bulk history clear or the retention job.
type ChatTurn struct {
	ID       string     `json:"id"`
	User     string     `json:"user"`
	Query    string     `json:"query"`
	Answer   string     `json:"answer"`
	Document string     `json:"document"`
	Sources  []ChunkRef `json:"sources"`
	Ctime    int64      `json:"ctime"`
}

// QAPair is a prior exchange injected into the prompt as history.
type QAPair struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
