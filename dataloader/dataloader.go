// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataloader provides the containers generators are fitted on and
// return: plain tables, time series and survival data.
//
// Example usage:
//
//	f, err := os.Open("iris.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	frame, err := dataloader.ReadCSV(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	data, err := dataloader.NewGeneric(frame, "species")
package dataloader

import (
	"io"

	"github.com/born-ml/synth/internal/dataloader"
)

// Frame is a numeric, row-major table with named columns.
type Frame = dataloader.Frame

// DataLoader is the common view over every container.
type DataLoader = dataloader.DataLoader

// LoaderType identifies the kind of data a loader holds.
type LoaderType = dataloader.LoaderType

// Supported loader types.
const (
	Generic          LoaderType = dataloader.Generic
	TimeSeries       LoaderType = dataloader.TimeSeries
	SurvivalAnalysis LoaderType = dataloader.SurvivalAnalysis
)

// GenericDataLoader wraps a plain table.
type GenericDataLoader = dataloader.GenericDataLoader

// TimeSeriesDataLoader holds static, temporal and outcome data per sequence.
type TimeSeriesDataLoader = dataloader.TimeSeriesDataLoader

// SurvivalAnalysisDataLoader holds covariates with an event indicator and a
// time-to-event column.
type SurvivalAnalysisDataLoader = dataloader.SurvivalAnalysisDataLoader

// ErrInvalidData is returned when a container fails validation.
var ErrInvalidData = dataloader.ErrInvalidData

// NewFrame validates and wraps columns and rows.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	return dataloader.NewFrame(columns, rows)
}

// NewGeneric wraps frame. target may be empty.
func NewGeneric(frame *Frame, target string) (*GenericDataLoader, error) {
	return dataloader.NewGeneric(frame, target)
}

// NewTimeSeries validates and wraps sequences. static and outcome may be nil.
func NewTimeSeries(static *Frame, temporal [][][]float64, temporalColumns []string, observationTimes [][]float64, outcome *Frame) (*TimeSeriesDataLoader, error) {
	return dataloader.NewTimeSeries(static, temporal, temporalColumns, observationTimes, outcome)
}

// NewSurvivalAnalysis wraps frame with its event and time-to-event columns.
func NewSurvivalAnalysis(frame *Frame, targetColumn, timeToEventColumn string) (*SurvivalAnalysisDataLoader, error) {
	return dataloader.NewSurvivalAnalysis(frame, targetColumn, timeToEventColumn)
}

// ReadCSV parses a numeric CSV file with a header row.
func ReadCSV(r io.Reader) (*Frame, error) {
	return dataloader.ReadCSV(r)
}

// WriteCSV writes f as CSV with a header row.
func WriteCSV(w io.Writer, f *Frame) error {
	return dataloader.WriteCSV(w, f)
}
