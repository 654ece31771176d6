package http

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

// expenseRow is the template view of one expense.
type expenseRow struct {
	ID       int64
	Amount   string
	Category string
	Note     string
	Day      string
}

type listView struct {
	Window   core.Window
	Windows  []core.Window
	Expenses []expenseRow
	Error    string
}

// expenseJSON is the API representation of an expense.
type expenseJSON struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Note     *string         `json:"note"`
	Date     *string         `json:"date"`
}

func (s *Server) loadList(r *http.Request) listView {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	window, err := ParseWindowParam(r.URL.Query())
	if err != nil {
		logger.WarnContext(ctx, "Invalid window parameter", applog.FieldWindow, r.URL.Query().Get("window"), "corrected_to", core.WindowAll)
		window = core.WindowAll
	}

	view := listView{Window: window, Windows: core.Windows}
	items, err := s.store.ListFiltered(ctx, window)
	if err != nil {
		logger.ErrorContext(ctx, "List expenses error", "error", err, applog.FieldWindow, string(window), applog.FieldOperation, applog.OpList)
		view.Error = "Could not load expenses"
		return view
	}
	for _, e := range items {
		view.Expenses = append(view.Expenses, expenseRow{
			ID:       e.ID,
			Amount:   e.DisplayAmount(),
			Category: e.Category,
			Note:     e.NoteText(),
			Day:      e.LocalDay(s.loc),
		})
	}
	return view
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", s.loadList(r))
}

// handleExpensesPartial renders only the list section for htmx refreshes.
func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "expenses.html", s.loadList(r))
}

func (s *Server) handleListExpensesJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window, err := ParseWindowParam(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	items, err := s.store.ListFiltered(ctx, window)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "List expenses error", "error", err, applog.FieldWindow, string(window), applog.FieldOperation, applog.OpList)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load expenses"})
		return
	}

	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		item := expenseJSON{ID: e.ID, Amount: e.Amount, Category: e.Category, Note: e.Note}
		if e.HasDate() {
			date := e.Date
			item.Date = &date
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.ErrorContext(ctx, "Parse body error", "error", err, "method", r.Method, "path", r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}
	in := ParseExpenseInput(parser)
	jsonClient := parser.IsJSON() || wantsJSON(r)

	amount, err := core.ParseAmount(in.Amount)
	if err == nil {
		err = s.store.Add(ctx, amount, in.Category, in.Note)
	}
	if err != nil {
		if core.IsValidation(err) {
			logger.InfoContext(ctx, "Expense rejected", "error", err, applog.FieldOperation, applog.OpValidate)
			if jsonClient {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			UnprocessableEntityError("Invalid data: " + err.Error()).Write(w)
			return
		}
		logger.ErrorContext(ctx, "Failed to save expense",
			"error", err,
			applog.FieldAmount, in.Amount,
			applog.FieldCategory, in.Category,
			applog.FieldOperation, applog.OpCreate)
		if jsonClient {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not save expense"})
			return
		}
		InternalServerError("Error saving expense").Write(w)
		return
	}

	logger.InfoContext(ctx, "Expense created successfully",
		applog.FieldAmount, amount.String(),
		applog.FieldCategory, in.Category,
		applog.FieldOperation, applog.OpCreate)

	switch {
	case jsonClient:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	case isHTMX(r):
		NewHTMXResponse().
			TriggerExpenseCreated().
			TriggerFormReset().
			TriggerSuccessNotification(fmt.Sprintf("Saved %s (%s)", amount.StringFixed(2), in.Category)).
			BodyHTML(`<div class="success">Expense saved</div>`).
			Write(w)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	id, ok := ParseIDParam(r)
	if !ok {
		BadRequestError("Invalid expense id").Write(w)
		return
	}

	if err := s.store.Remove(ctx, id); err != nil {
		logger.ErrorContext(ctx, "Failed to delete expense", "error", err, applog.FieldExpenseID, id, applog.FieldOperation, applog.OpDelete)
		InternalServerError("Error deleting expense").Write(w)
		return
	}

	logger.InfoContext(ctx, "Expense deleted", applog.FieldExpenseID, id, applog.FieldOperation, applog.OpDelete)

	switch {
	case isHTMX(r):
		NewHTMXResponse().TriggerExpenseDeleted(id).Write(w)
	case r.Method == http.MethodDelete || wantsJSON(r):
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}
