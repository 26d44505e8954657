package model

import (
	"fmt"
	"time"
)

// dateOnlyLayout は日付のみのフィルタ入力を受け付けるレイアウト。
const dateOnlyLayout = "2006-01-02"

// FilterInput は境界層から受け取る未検証のフィルタ入力。
// すべて文字列のまま保持し、NewFilterSpecで検証・正規化する。
type FilterInput struct {
	Search      string
	Source      string
	Sentiment   string
	StartDate   string
	EndDate     string
	FeedbackIDs []int64
}

// FilterSpec は検証済み・正規化済みのフィルタ条件を表す値型。
// NewFilterSpecでのみ構築し、構築後は変更しない。
// 同一フィールド値を持つ2つのFilterSpecは交換可能（値等価）。
// 各述語はANDで結合され、すべて未指定の場合は全レコードに一致する。
// FeedbackIDsが指定されている場合、他の述語はすべて無視される（結合されない）。
type FilterSpec struct {
	Search      string
	Source      Source    // 空文字は未指定
	Sentiment   Sentiment // 空文字は未指定
	StartDate   *time.Time
	EndDate     *time.Time
	FeedbackIDs []int64
}

// NewFilterSpec は未検証の入力からFilterSpecを構築する。
// 未知のsource/sentiment、解析できない日付、start_date > end_date は
// 対象フィールドを示すVALIDATION_ERRORで拒否し、部分的なSpecは構築しない。
func NewFilterSpec(in FilterInput) (*FilterSpec, error) {
	spec := &FilterSpec{Search: in.Search}

	if in.Source != "" {
		src := Source(in.Source)
		if !src.Valid() {
			return nil, NewValidationError("source", fmt.Sprintf("未知の収集元です: %s", in.Source))
		}
		spec.Source = src
	}

	if in.Sentiment != "" {
		sent := Sentiment(in.Sentiment)
		if !sent.Valid() {
			return nil, NewValidationError("sentiment", fmt.Sprintf("未知の感情ラベルです: %s", in.Sentiment))
		}
		spec.Sentiment = sent
	}

	if in.StartDate != "" {
		t, _, err := parseFilterDate(in.StartDate)
		if err != nil {
			return nil, NewValidationError("start_date", fmt.Sprintf("日付を解析できません: %s", in.StartDate))
		}
		spec.StartDate = &t
	}

	if in.EndDate != "" {
		t, dateOnly, err := parseFilterDate(in.EndDate)
		if err != nil {
			return nil, NewValidationError("end_date", fmt.Sprintf("日付を解析できません: %s", in.EndDate))
		}
		// 日付のみの終了日はその日全体を含む（境界は包含）
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		spec.EndDate = &t
	}

	if spec.StartDate != nil && spec.EndDate != nil && spec.StartDate.After(*spec.EndDate) {
		return nil, NewValidationError("start_date", "start_dateはend_date以前である必要があります")
	}

	if len(in.FeedbackIDs) > 0 {
		ids := make([]int64, len(in.FeedbackIDs))
		copy(ids, in.FeedbackIDs)
		spec.FeedbackIDs = ids
	}

	return spec, nil
}

// parseFilterDate はRFC3339または日付のみ（YYYY-MM-DD）の入力を解析する。
// 2番目の戻り値は日付のみの入力だったかどうかを示す。
func parseFilterDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

// HasIDs はID指定モードかどうかを返す。
// trueの場合、他の述語フィールドは問い合わせに使用されない。
func (s *FilterSpec) HasIDs() bool {
	return len(s.FeedbackIDs) > 0
}

// Equal は2つのFilterSpecが値として等しいかを返す。
// キャッシュキーやテストでの比較に使用する。
func (s *FilterSpec) Equal(o *FilterSpec) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Search != o.Search || s.Source != o.Source || s.Sentiment != o.Sentiment {
		return false
	}
	if !timePtrEqual(s.StartDate, o.StartDate) || !timePtrEqual(s.EndDate, o.EndDate) {
		return false
	}
	if len(s.FeedbackIDs) != len(o.FeedbackIDs) {
		return false
	}
	for i, id := range s.FeedbackIDs {
		if o.FeedbackIDs[i] != id {
			return false
		}
	}
	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
