// Package xlsx exports retriever evaluation reports as spreadsheets.
package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

const (
	summarySheet = "Summary"
	scoresSheet  = "Questions"
)

func Write(path string, report *domain.EvalReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	k := report.K
	header := []any{"retriever", "questions", fmt.Sprintf("recall@%d", k), fmt.Sprintf("mrr@%d", k), fmt.Sprintf("ndcg@%d", k)}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for i, s := range report.Summaries {
		row := []any{s.Retriever, s.Questions, s.Recall, s.MRR, s.NDCG}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(scoresSheet); err != nil {
		return fmt.Errorf("create scores sheet: %w", err)
	}
	scoreHeader := []any{"item_id", "retriever", "recall", "mrr", "ndcg", "retrieved_urls"}
	if err := f.SetSheetRow(scoresSheet, "A1", &scoreHeader); err != nil {
		return fmt.Errorf("write scores header: %w", err)
	}
	for i, s := range report.Scores {
		row := []any{s.ItemID, s.Retriever, s.Recall, s.MRR, s.NDCG, strings.Join(s.RetrievedURLs, "\n")}
		if err := setRow(f, scoresSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
