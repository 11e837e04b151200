package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/glowdist/commission-manager/internal/entity"
)

func urlParamInt(r *http.Request, key string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, key))
}

func urlParamMonth(r *http.Request, key string) (entity.YearMonth, error) {
	return entity.ParseYearMonth(chi.URLParam(r, key))
}

func renderErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		render.Render(w, r, ErrNotFound(err))
		return
	}
	render.Render(w, r, ErrInternalServerError(err))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.rep.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			render.Render(w, r, ErrInternalServerError(err))
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var orderNew entity.OrderNew
	if err := render.DecodeJSON(r.Body, &orderNew); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if _, err := govalidator.ValidateStruct(&orderNew); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if _, err := s.rep.Partners().GetShopById(r.Context(), orderNew.ShopID); err != nil {
		renderErr(w, r, err)
		return
	}

	order, err := s.rep.Orders().CreateOrder(r.Context(), &orderNew)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, order)
}

func (s *Server) processOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := urlParamInt(r, "orderId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	result, err := s.svc.ProcessOrder(r.Context(), orderId)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := urlParamInt(r, "orderId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if _, err := s.rep.Orders().GetOrderById(r.Context(), orderId); err != nil {
		renderErr(w, r, err)
		return
	}
	if err := s.rep.Orders().UpdateOrderStatus(r.Context(), orderId, entity.OrderStatusCancelled); err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": string(entity.OrderStatusCancelled)})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	kolId, err := urlParamInt(r, "kolId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	ym, err := urlParamMonth(r, "yearMonth")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	summary, err := s.rep.Summaries().GetSummary(r.Context(), kolId, ym)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	kolId, err := urlParamInt(r, "kolId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	ym, err := urlParamMonth(r, "yearMonth")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	entries, err := s.rep.Ledger().ListEntriesByKolMonth(r.Context(), kolId, ym)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, entries)
}

func (s *Server) getCommissions(w http.ResponseWriter, r *http.Request) {
	kolId, err := urlParamInt(r, "kolId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	commissions, err := s.rep.Commissions().ListCommissionsByKol(r.Context(), kolId)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, commissions)
}

func (s *Server) getRatios(w http.ResponseWriter, r *http.Request) {
	shopId, err := urlParamInt(r, "shopId")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	ym, err := urlParamMonth(r, "yearMonth")
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	shop, err := s.rep.Partners().GetShopById(r.Context(), shopId)
	if err != nil {
		renderErr(w, r, err)
		return
	}

	ratios, err := s.rep.Ratios().ListRatios(r.Context(), shop.KolID, shopId, ym)
	if err != nil {
		renderErr(w, r, err)
		return
	}
	render.JSON(w, r, ratios)
}
