package dataloader

import "fmt"

// LoaderType identifies the kind of data a loader holds.
type LoaderType string

// Supported loader types.
const (
	Generic          LoaderType = "generic"
	TimeSeries       LoaderType = "time_series"
	SurvivalAnalysis LoaderType = "survival_analysis"
)

// DataLoader is the common view over every container.
type DataLoader interface {
	// Type returns the container kind.
	Type() LoaderType
	// Columns returns the column names of Frame.
	Columns() []string
	// Len returns the number of samples (rows or sequences).
	Len() int
	// Frame returns a flat tabular view.
	Frame() *Frame
	// Validate checks internal consistency.
	Validate() error
}

// GenericDataLoader wraps a plain table with an optional target column.
type GenericDataLoader struct {
	data   *Frame
	target string
}

// NewGeneric validates frame and wraps it. target may be empty.
func NewGeneric(frame *Frame, target string) (*GenericDataLoader, error) {
	l := &GenericDataLoader{data: frame, target: target}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Type implements DataLoader.
func (l *GenericDataLoader) Type() LoaderType { return Generic }

// Columns implements DataLoader.
func (l *GenericDataLoader) Columns() []string { return l.data.Columns }

// Len implements DataLoader.
func (l *GenericDataLoader) Len() int { return l.data.Len() }

// Frame implements DataLoader.
func (l *GenericDataLoader) Frame() *Frame { return l.data }

// Target returns the target column name, if any.
func (l *GenericDataLoader) Target() string { return l.target }

// Validate implements DataLoader.
func (l *GenericDataLoader) Validate() error {
	if err := l.data.Validate(); err != nil {
		return err
	}
	if l.target != "" && l.data.ColumnIndex(l.target) < 0 {
		return fmt.Errorf("%w: target column %q not found", ErrInvalidData, l.target)
	}
	return nil
}

// SurvivalAnalysisDataLoader holds covariates with an event indicator and a
// time-to-event column.
type SurvivalAnalysisDataLoader struct {
	data        *Frame
	target      string
	timeToEvent string
}

// NewSurvivalAnalysis validates frame and wraps it.
func NewSurvivalAnalysis(frame *Frame, targetColumn, timeToEventColumn string) (*SurvivalAnalysisDataLoader, error) {
	l := &SurvivalAnalysisDataLoader{data: frame, target: targetColumn, timeToEvent: timeToEventColumn}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Type implements DataLoader.
func (l *SurvivalAnalysisDataLoader) Type() LoaderType { return SurvivalAnalysis }

// Columns implements DataLoader.
func (l *SurvivalAnalysisDataLoader) Columns() []string { return l.data.Columns }

// Len implements DataLoader.
func (l *SurvivalAnalysisDataLoader) Len() int { return l.data.Len() }

// Frame implements DataLoader.
func (l *SurvivalAnalysisDataLoader) Frame() *Frame { return l.data }

// TargetColumn returns the event indicator column name.
func (l *SurvivalAnalysisDataLoader) TargetColumn() string { return l.target }

// TimeToEventColumn returns the duration column name.
func (l *SurvivalAnalysisDataLoader) TimeToEventColumn() string { return l.timeToEvent }

// Covariates returns the frame without the event and duration columns.
func (l *SurvivalAnalysisDataLoader) Covariates() *Frame {
	f, _ := l.data.Drop(l.target, l.timeToEvent) // columns checked by Validate
	return f
}

// Events returns the event indicator column.
func (l *SurvivalAnalysisDataLoader) Events() []float64 {
	return l.data.ColumnAt(l.data.ColumnIndex(l.target))
}

// Times returns the time-to-event column.
func (l *SurvivalAnalysisDataLoader) Times() []float64 {
	return l.data.ColumnAt(l.data.ColumnIndex(l.timeToEvent))
}

// Validate implements DataLoader.
func (l *SurvivalAnalysisDataLoader) Validate() error {
	if err := l.data.Validate(); err != nil {
		return err
	}
	if l.target == "" || l.timeToEvent == "" || l.target == l.timeToEvent {
		return fmt.Errorf("%w: distinct target and time-to-event columns are required", ErrInvalidData)
	}
	ti := l.data.ColumnIndex(l.target)
	if ti < 0 {
		return fmt.Errorf("%w: target column %q not found", ErrInvalidData, l.target)
	}
	di := l.data.ColumnIndex(l.timeToEvent)
	if di < 0 {
		return fmt.Errorf("%w: time-to-event column %q not found", ErrInvalidData, l.timeToEvent)
	}
	for i, row := range l.data.Rows {
		if row[ti] != 0 && row[ti] != 1 {
			return fmt.Errorf("%w: event indicator at row %d is %v, expected 0 or 1", ErrInvalidData, i, row[ti])
		}
		if row[di] < 0 {
			return fmt.Errorf("%w: negative time-to-event at row %d", ErrInvalidData, i)
		}
	}
	return nil
}
