package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// PlaceOrder confirms the session and returns the persisted order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.PlaceOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("session_id")
		e.Str(o.SessionID)
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			e.FieldStart("product_id")
			e.Str(it.ProductID)
			e.FieldStart("quantity")
			e.Int(it.Quantity)
			e.FieldStart("unit_price")
			money(e, it.UnitPrice)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("subtotal")
		money(e, o.Subtotal)
		e.FieldStart("delivery_fee")
		money(e, o.DeliveryFee)
		e.FieldStart("discount")
		money(e, o.Discount)
		e.FieldStart("total")
		money(e, o.Total)
		if o.CouponCode != "" {
			e.FieldStart("coupon_code")
			e.Str(o.CouponCode)
		}
		e.FieldStart("delivery")
		e.ObjStart()
		e.FieldStart("date")
		e.Str(o.Delivery.Date.String())
		e.FieldStart("slot")
		e.Str(string(o.Delivery.Slot))
		e.FieldStart("same_day")
		e.Bool(o.Delivery.SameDay)
		e.FieldStart("address")
		e.Str(o.Delivery.Address)
		e.ObjEnd()
		e.FieldStart("created_at")
		e.Str(o.CreatedAt.Format(time.RFC3339))
		e.ObjEnd()
	})
}
