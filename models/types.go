package models

import "time"

// Circuit status constants
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Ballot kind constants
const (
	KindOrdinary = "ordinary"
	KindBlank    = "blank"
	KindAnnulled = "annulled"
)

// Session role constants
const (
	RoleVoter     = "voter"
	RolePresident = "president"
	RoleCourt     = "court"
)

// Circuit event actions
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// Request types

type VoterLoginRequest struct {
	Credential      string `json:"credential"`
	VotingCircuitID *int64 `json:"voting_circuit_id,omitempty"`
}

type PresidentLoginRequest struct {
	Credential string `json:"credential"`
}

type CourtLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PartyID and ListID are required for ordinary ballots and must be absent
// otherwise.
type CastVoteRequest struct {
	Kind    string `json:"kind"`
	PartyID *int64 `json:"party_id,omitempty"`
	ListID  *int64 `json:"list_id,omitempty"`
}

// Response types

type VoterLoginResponse struct {
	Token           string       `json:"token"`
	Citizen         Citizen      `json:"citizen"`
	AssignedCircuit *CircuitInfo `json:"assigned_circuit,omitempty"`
	VotingCircuit   CircuitInfo  `json:"voting_circuit"`
	Observed        bool         `json:"observed"`
}

type PresidentLoginResponse struct {
	Token     string        `json:"token"`
	President PresidentInfo `json:"president"`
}

type CourtLoginResponse struct {
	Token string `json:"token"`
}

type CastVoteResponse struct {
	Message   string `json:"message"`
	Observed  bool   `json:"observed"`
	CircuitID int64  `json:"circuit_id"`
}

type CircuitStatusResponse struct {
	CircuitID int64  `json:"circuit_id"`
	Status    string `json:"status"`
	UrnOpen   bool   `json:"urn_open"`
}

type PresidentOverview struct {
	President PresidentInfo `json:"president"`
	Circuit   CircuitInfo   `json:"circuit"`
	UrnOpen   bool          `json:"urn_open"`
}

type TransitionResponse struct {
	CircuitID int64     `json:"circuit_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	Message   string    `json:"message"`
}

// Domain types

type Citizen struct {
	CC   string `json:"cc"`
	Name string `json:"name"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Establishment struct {
	ID           int64  `json:"id"`
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Address      string `json:"address"`
}

type Election struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type Circuit struct {
	ID              int64  `json:"id"`
	EstablishmentID int64  `json:"establishment_id"`
	ElectionID      int64  `json:"election_id"`
	Status          string `json:"status"`
}

// CircuitInfo is a circuit with its establishment, as shown to citizens and
// presidents.
type CircuitInfo struct {
	ID            int64         `json:"id"`
	ElectionID    int64         `json:"election_id"`
	Status        string        `json:"status"`
	Establishment Establishment `json:"establishment"`
}

type PresidentInfo struct {
	ID        int64  `json:"id"`
	CC        string `json:"cc"`
	Name      string `json:"name"`
	CircuitID int64  `json:"circuit_id"`
}

type Party struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type List struct {
	ID       int64  `json:"id"`
	PartyID  int64  `json:"party_id"`
	Number   int    `json:"number"`
	Members  string `json:"members"`
	ImageURL string `json:"image_url"`
}

// Result types

type ResultSummary struct {
	Total    int `json:"total"`
	Ordinary int `json:"ordinary"`
	Blank    int `json:"blank"`
	Annulled int `json:"annulled"`
	Observed int `json:"observed"`
}

type ResultPercentages struct {
	Ordinary float64 `json:"ordinary"`
	Blank    float64 `json:"blank"`
	Annulled float64 `json:"annulled"`
	Observed float64 `json:"observed"`
}

type ListResult struct {
	ListID     int64    `json:"list_id"`
	ListNumber int      `json:"list_number"`
	PartyID    int64    `json:"party_id"`
	PartyName  string   `json:"party_name"`
	Candidates []string `json:"candidates,omitempty"`
	Votes      int      `json:"votes"`
	Percentage float64  `json:"percentage"`
}

// PartyID is nil for the blank and annulled rows.
type PartyResult struct {
	PartyID    *int64  `json:"party_id"`
	PartyName  string  `json:"party_name"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type CandidateResult struct {
	CandidateCC   string  `json:"candidate_cc"`
	CandidateName string  `json:"candidate_name"`
	ListID        int64   `json:"list_id"`
	PartyID       int64   `json:"party_id"`
	PartyName     string  `json:"party_name"`
	Votes         int     `json:"votes"`
	Percentage    float64 `json:"percentage"`
}

type CircuitResults struct {
	Circuit     CircuitInfo       `json:"circuit"`
	Summary     ResultSummary     `json:"summary"`
	Percentages ResultPercentages `json:"percentages"`
	ByList      []ListResult      `json:"by_list"`
	ByParty     []PartyResult     `json:"by_party"`
	ByCandidate []CandidateResult `json:"by_candidate"`
}

type DepartmentResult struct {
	DepartmentID     int64        `json:"department_id"`
	DepartmentName   string       `json:"department_name"`
	Voters           int          `json:"voters"`
	AssignedCitizens int          `json:"assigned_citizens"`
	Participation    float64      `json:"participation_percentage"`
	Lists            []ListResult `json:"lists"`
}

type FinalResults struct {
	WinningList  *ListResult        `json:"winning_list"`
	Lists        []ListResult       `json:"lists"`
	ByDepartment []DepartmentResult `json:"by_department"`
	Summary      ResultSummary      `json:"summary"`
}

// Final is nil until every circuit of the election is closed.
type ElectionResults struct {
	Election       Election      `json:"election"`
	TotalCitizens  int           `json:"total_citizens"`
	TotalVoters    int           `json:"total_voters"`
	Participation  float64       `json:"participation_percentage"`
	TotalCircuits  int           `json:"total_circuits"`
	OpenCircuits   int           `json:"open_circuits"`
	ClosedCircuits int           `json:"closed_circuits"`
	AllClosed      bool          `json:"all_closed"`
	Final          *FinalResults `json:"final"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
