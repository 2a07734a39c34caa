package http

import (
	"strings"
	"time"

	"expensetracker/internal/collection"
	"expensetracker/internal/core"
	"expensetracker/internal/form"
	"expensetracker/internal/session"
)

// Template data for the page and its partials.
type (
	pageView struct {
		Form   formView
		List   listView
		Dialog dialogView
	}

	formView struct {
		Draft      core.Draft
		Errors     core.FieldErrors
		Editing    bool
		EditingID  string
		Submitting bool
		Categories []core.Category
	}

	listView struct {
		Items       []itemView
		Total       string
		Count       int
		Loading     bool
		AutoRefresh bool
		Skeleton    []int
	}

	itemView struct {
		ID            string
		Title         string
		Category      string
		CategoryClass string
		Date          string
		Notes         string
		Amount        string
	}

	dialogView struct {
		Open     bool
		Title    string
		Deleting bool
	}
)

// skeletonRows is the number of placeholder rows after the header row.
const skeletonRows = 2

const displayDateLayout = "Jan 02, 2006"

func newFormView(st form.State) formView {
	v := formView{
		Draft:      st.Draft,
		Errors:     st.Errors,
		Editing:    st.IsEditing(),
		Submitting: st.Submitting,
		Categories: core.Categories(),
	}
	if st.Editing != nil {
		v.EditingID = st.Editing.ID
	}
	return v
}

func newListView(snap collection.Snapshot) listView {
	v := listView{
		Items:   make([]itemView, 0, snap.Count()),
		Total:   core.FormatCurrency(snap.Total),
		Count:   snap.Count(),
		Loading: snap.Loading,
	}
	if v.Loading {
		v.Skeleton = make([]int, skeletonRows)
	}
	for _, e := range snap.Expenses {
		v.Items = append(v.Items, newItemView(e))
	}
	return v
}

func newItemView(e core.Expense) itemView {
	return itemView{
		ID:            e.ID,
		Title:         e.Title,
		Category:      e.Category,
		CategoryClass: "badge-" + strings.ToLower(e.Category),
		Date:          displayDate(e.Date),
		Notes:         e.Notes,
		Amount:        core.FormatAmount(e.Amount),
	}
}

func newDialogView(snap collection.Snapshot) dialogView {
	if snap.Candidate == nil {
		return dialogView{}
	}
	return dialogView{
		Open:     true,
		Title:    snap.Candidate.Title,
		Deleting: snap.Deleting,
	}
}

func newPageView(page *session.Page, initialLoad bool) pageView {
	snap := page.Collection.Snapshot()
	list := newListView(snap)
	list.AutoRefresh = true
	if initialLoad {
		list.Loading = true
		list.Skeleton = make([]int, skeletonRows)
	}
	return pageView{
		Form:   newFormView(page.Form.State()),
		List:   list,
		Dialog: newDialogView(snap),
	}
}

// displayDate renders an ISO date as "Jan 02, 2006", falling back to the raw
// value when it does not parse.
func displayDate(s string) string {
	t, err := time.Parse(core.DateLayout, core.DateOnly(s))
	if err != nil {
		return s
	}
	return t.Format(displayDateLayout)
}
