package connectome

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Session labels a scan session.
type Session string

// Run labels an acquisition run within a session.
type Run string

const (
	Session1 Session = "Session1"
	Session2 Session = "Session2"
	Run1     Run     = "Run1"
	Run2     Run     = "Run2"
)

// MetadataKey is the reserved scan key holding a subject's metadata.
const MetadataKey = "metadata"

type scanLabel struct {
	session Session
	run     Run
}

// scanCodes maps raw scan codes (2 sessions × 2 phase-encoding directions)
// to session and run.
var scanCodes = map[string]scanLabel{
	"REST1_LR": {Session1, Run1},
	"REST1_RL": {Session1, Run2},
	"REST2_LR": {Session2, Run1},
	"REST2_RL": {Session2, Run2},
}

// ScanCodes lists the recognized scan codes.
func ScanCodes() []string {
	return []string{"REST1_LR", "REST1_RL", "REST2_LR", "REST2_RL"}
}

// Metadata holds per-subject attributes such as Gender and Age.
type Metadata map[string]string

// Gender returns the "Gender" attribute (M or F).
func (m Metadata) Gender() string { return m["Gender"] }

// Age returns the "Age" band, e.g. "22-25" or "36+".
func (m Metadata) Age() string { return m["Age"] }

// MatrixKind selects one of the matrices held by a Sample.
type MatrixKind int

const (
	TimeSeries MatrixKind = iota
	LeadMatrix
	SortedLeadMatrix
	CovarianceMatrix
	CorrelationMatrix
)

var matrixNames = []string{"TimeSeries", "ULM", "SLM", "CVM", "CRM"}

func (k MatrixKind) String() string {
	if k < 0 || int(k) >= len(matrixNames) {
		return fmt.Sprintf("MatrixKind(%d)", int(k))
	}
	return matrixNames[k]
}

// ParseMatrixKind accepts TimeSeries, ULM, SLM, CVM and CRM.
func ParseMatrixKind(name string) (MatrixKind, error) {
	for k, n := range matrixNames {
		if strings.EqualFold(n, name) {
			return MatrixKind(k), nil
		}
	}
	return 0, fmt.Errorf("matrix %q (want one of %v): %w", name, matrixNames, ErrUsage)
}

// Sample is one scan run of one subject with everything derived from it.
type Sample struct {
	Name     string
	Scan     string
	Session  Session
	Run      Run
	Metadata Metadata

	// TimeSeries is the preprocessed channels × time series.
	TimeSeries *mat.Dense

	Lead        *mat.Dense   // ULM
	Sorted      *mat.Dense   // SLM, Lead permuted by Permutation
	Phases      []complex128 // eigenvector the permutation is derived from
	Permutation []int
	Eigenvalues []complex128

	Covariance  *mat.Dense // CVM
	Correlation *mat.Dense // CRM

	// Ordering of the Hermitian matrix Covariance + i·Lead.
	FusedPhases      []complex128
	FusedPermutation []int
	FusedEigenvalues []float64

	stale bool
}

// Matrix returns the matrix of the given kind.
func (s *Sample) Matrix(kind MatrixKind) (*mat.Dense, error) {
	switch kind {
	case TimeSeries:
		return s.TimeSeries, nil
	case LeadMatrix:
		return s.Lead, nil
	case SortedLeadMatrix:
		return s.Sorted, nil
	case CovarianceMatrix:
		return s.Covariance, nil
	case CorrelationMatrix:
		return s.Correlation, nil
	}
	return nil, fmt.Errorf("matrix kind %v: %w", kind, ErrUsage)
}

// FusedMatrix returns the Hermitian matrix Covariance + i·Lead.
func (s *Sample) FusedMatrix() *mat.CDense {
	n, _ := s.Lead.Dims()
	out := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, complex(s.Covariance.At(i, j), s.Lead.At(i, j)))
		}
	}
	return out
}

// Stale reports whether the time series changed since the matrices were derived.
func (s *Sample) Stale() bool { return s.stale }

// Label is "<name>\n<session>-<run>".
func (s *Sample) Label() string {
	return s.Name + "\n" + string(s.Session) + "-" + string(s.Run)
}

func (s *Sample) String() string {
	return fmt.Sprintf("%s %s-%s", s.Name, s.Session, s.Run)
}

func (s *Sample) matches(session Session, run Run) bool {
	return (session == "" || s.Session == session) && (run == "" || s.Run == run)
}
