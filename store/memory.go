package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nonsonwune/boe_visualizer/models"
)

type submissionKey struct {
	paperID   int64
	studentID int64
}

type memState struct {
	seq         int64
	papers      map[string]models.Paper
	students    map[string]models.Student
	submissions map[submissionKey]models.Submission
	fields      map[int64]map[string]models.SubmissionField
	uploads     []models.CSVUpload
}

func newMemState() *memState {
	return &memState{
		papers:      make(map[string]models.Paper),
		students:    make(map[string]models.Student),
		submissions: make(map[submissionKey]models.Submission),
		fields:      make(map[int64]map[string]models.SubmissionField),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.seq = s.seq
	for k, v := range s.papers {
		c.papers[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	for k, v := range s.submissions {
		c.submissions[k] = v
	}
	for id, fs := range s.fields {
		m := make(map[string]models.SubmissionField, len(fs))
		for k, v := range fs {
			m[k] = v
		}
		c.fields[id] = m
	}
	c.uploads = make([]models.CSVUpload, len(s.uploads))
	for i, u := range s.uploads {
		u.OriginalHeaders = append([]string(nil), u.OriginalHeaders...)
		c.uploads[i] = u
	}
	return c
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

// Memory is an in-process Store. Transactions are serialized and work on a
// copy of the state that replaces the live one on commit.
type Memory struct {
	mutex sync.RWMutex
	state *memState
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{state: newMemState(), now: time.Now}
}

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := ctx.Err(); err != nil {
		return wrap("begin", err)
	}

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: work, now: m.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return wrap("commit", err)
	}
	m.state = work
	return nil
}

func (m *Memory) PaperByCode(_ context.Context, code string) (models.Paper, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if p, ok := m.state.papers[code]; ok {
		return p, nil
	}
	return models.Paper{}, ErrNotFound
}

func (m *Memory) ListPapers(_ context.Context) ([]models.PaperSummary, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	papers := make([]models.PaperSummary, 0, len(m.state.papers))
	for _, p := range m.state.papers {
		summary := models.PaperSummary{Paper: p}
		var sum float64
		var graded int
		for k, sub := range m.state.submissions {
			if k.paperID != p.ID {
				continue
			}
			summary.TotalSubmissions++
			if sub.Percentage.Valid {
				sum += sub.Percentage.Float64
				graded++
			}
		}
		if graded > 0 {
			summary.AverageScore = round2(sum / float64(graded))
		}
		papers = append(papers, summary)
	}

	sort.Slice(papers, func(i, j int) bool {
		a, b := papers[i].Paper, papers[j].Paper
		if a.Year != b.Year {
			if a.Year.Valid != b.Year.Valid {
				return a.Year.Valid
			}
			return a.Year.Int64 > b.Year.Int64
		}
		if a.Semester != b.Semester {
			if a.Semester.Valid != b.Semester.Valid {
				return a.Semester.Valid
			}
			return a.Semester.String > b.Semester.String
		}
		return a.Code < b.Code
	})
	return papers, nil
}

func (m *Memory) PaperStatistics(_ context.Context, paperID int64) (models.PaperStatistics, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := models.PaperStatistics{GradeDistribution: make(map[string]int)}
	var sum float64
	var passed int
	lo, hi := math.Inf(1), math.Inf(-1)
	for k, sub := range m.state.submissions {
		if k.paperID != paperID {
			continue
		}
		stats.TotalSubmissions++
		if sub.Grade.Valid {
			stats.GradeDistribution[sub.Grade.String]++
		}
		if !sub.Percentage.Valid {
			continue
		}
		pct := sub.Percentage.Float64
		stats.GradedSubmissions++
		sum += pct
		lo = math.Min(lo, pct)
		hi = math.Max(hi, pct)
		if pct >= models.PassMark {
			passed++
		}
	}

	if stats.GradedSubmissions > 0 {
		n := float64(stats.GradedSubmissions)
		stats.Average = round2(sum / n)
		stats.Minimum = round2(lo)
		stats.Maximum = round2(hi)
		stats.PassRate = round2(100 * float64(passed) / n)
	}
	return stats, nil
}

func (m *Memory) PaperSubmissions(_ context.Context, paperID int64) ([]models.SubmissionRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	byPK := make(map[int64]models.Student, len(m.state.students))
	for _, st := range m.state.students {
		byPK[st.ID] = st
	}

	records := make([]models.SubmissionRecord, 0)
	for k, sub := range m.state.submissions {
		if k.paperID != paperID {
			continue
		}
		rec := models.SubmissionRecord{Submission: sub, Student: byPK[k.studentID]}
		if fs := m.state.fields[sub.ID]; len(fs) > 0 {
			rec.Fields = make(map[string]string, len(fs))
			for name, f := range fs {
				rec.Fields[name] = f.Value
			}
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Student.StudentID < records[j].Student.StudentID
	})
	return records, nil
}

func (m *Memory) PaperUploads(_ context.Context, paperID int64) ([]models.CSVUpload, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	uploads := make([]models.CSVUpload, 0)
	for i := len(m.state.uploads) - 1; i >= 0; i-- {
		if u := m.state.uploads[i]; u.PaperID == paperID {
			uploads = append(uploads, u)
		}
	}
	return uploads, nil
}

// Counts reports the number of stored papers, students, submissions and
// uploads.
func (m *Memory) Counts() (papers, students, submissions, uploads int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.state.papers), len(m.state.students), len(m.state.submissions), len(m.state.uploads)
}

type memTx struct {
	state *memState
	now   func() time.Time
}

func (t *memTx) PaperByCode(_ context.Context, code string) (models.Paper, error) {
	if p, ok := t.state.papers[code]; ok {
		return p, nil
	}
	return models.Paper{}, ErrNotFound
}

func (t *memTx) CreatePaper(_ context.Context, p models.Paper) (models.Paper, error) {
	if existing, ok := t.state.papers[p.Code]; ok {
		return existing, nil
	}
	p.ID = t.state.nextID()
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	t.state.papers[p.Code] = p
	return p, nil
}

func (t *memTx) UpsertStudent(_ context.Context, s models.Student) (models.Student, error) {
	existing, ok := t.state.students[s.StudentID]
	if !ok {
		s.ID = t.state.nextID()
		s.CreatedAt = t.now()
		s.UpdatedAt = s.CreatedAt
		t.state.students[s.StudentID] = s
		return s, nil
	}

	if s.FirstName.Valid {
		existing.FirstName = s.FirstName
	}
	if s.LastName.Valid {
		existing.LastName = s.LastName
	}
	if s.Email.Valid {
		existing.Email = s.Email
	}
	existing.UpdatedAt = t.now()
	t.state.students[s.StudentID] = existing
	return existing, nil
}

func (t *memTx) UpsertSubmission(_ context.Context, s models.Submission) (models.Submission, bool, error) {
	key := submissionKey{paperID: s.PaperID, studentID: s.StudentID}
	existing, ok := t.state.submissions[key]
	if !ok {
		s.ID = t.state.nextID()
		s.CreatedAt = t.now()
		s.UpdatedAt = s.CreatedAt
		t.state.submissions[key] = s
		return s, true, nil
	}

	existing.Grade = s.Grade
	existing.Score = s.Score
	existing.MaxScore = s.MaxScore
	existing.Percentage = s.Percentage
	existing.UpdatedAt = t.now()
	t.state.submissions[key] = existing
	return existing, false, nil
}

func (t *memTx) UpsertSubmissionField(_ context.Context, f models.SubmissionField) error {
	fs, ok := t.state.fields[f.SubmissionID]
	if !ok {
		fs = make(map[string]models.SubmissionField)
		t.state.fields[f.SubmissionID] = fs
	}
	if existing, ok := fs[f.Name]; ok {
		f.ID = existing.ID
	} else {
		f.ID = t.state.nextID()
	}
	fs[f.Name] = f
	return nil
}

func (t *memTx) CreateUpload(_ context.Context, u models.CSVUpload) error {
	for _, existing := range t.state.uploads {
		if existing.ID == u.ID {
			return wrap("create upload", errors.Errorf("duplicate upload id %s", u.ID))
		}
	}
	u.RecordsImported, u.RecordsUpdated = 0, 0
	u.CreatedAt = t.now()
	t.state.uploads = append(t.state.uploads, u)
	return nil
}

func (t *memTx) FinalizeUpload(_ context.Context, id uuid.UUID, imported, updated int) error {
	for i := range t.state.uploads {
		if t.state.uploads[i].ID == id {
			t.state.uploads[i].RecordsImported = imported
			t.state.uploads[i].RecordsUpdated = updated
			return nil
		}
	}
	return wrap("finalize upload", errors.Wrapf(ErrNotFound, "upload %s", id))
}

func round2(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f).Round(2))
}
