package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
	"github.com/xenking/bouquet-checkout/internal/domain/delivery"
)

// CreateSession starts a checkout session. The optional "primary_item_id"
// is added to the cart as the bundled item.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var primary string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "primary_item_id" {
			v, err := d.Str()
			primary = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.checkout.Create(r.Context(), primary)
	h.respondSession(w, r, http.StatusCreated, sess, err)
}

// GetSession returns the session with freshly computed totals.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Get(r.Context(), r.PathValue("id"))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// AddItem adds one unit of "item_id".
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var itemID string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "item_id" {
			v, err := d.Str()
			itemID = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if itemID == "" {
		writeError(w, r, badRequest("item_id is required"))
		return
	}

	sess, err := h.checkout.AddItem(r.Context(), r.PathValue("id"), itemID)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// SetQuantity sets the quantity of a cart line. Removing the primary item
// needs "confirm": true.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var (
		quantity    int
		hasQuantity bool
		confirm     bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
			hasQuantity = true
		case "confirm":
			confirm, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !hasQuantity {
		writeError(w, r, badRequest("quantity is required"))
		return
	}

	sess, err := h.checkout.SetQuantity(r.Context(), r.PathValue("id"), r.PathValue("itemId"), quantity, confirm)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// ApplyCoupon applies "code", replacing any applied coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "code" {
			v, err := d.Str()
			code = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.checkout.ApplyCoupon(r.Context(), r.PathValue("id"), code)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// RemoveCoupon clears the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.RemoveCoupon(r.Context(), r.PathValue("id"))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// GetCalendar returns the displayed month grid.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Get(r.Context(), r.PathValue("id"))
	h.respondCalendar(w, r, sess, err)
}

// NextMonth advances the displayed month.
func (h *Handler) NextMonth(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.NextMonth(r.Context(), r.PathValue("id"))
	h.respondCalendar(w, r, sess, err)
}

// PrevMonth moves the displayed month back.
func (h *Handler) PrevMonth(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.PrevMonth(r.Context(), r.PathValue("id"))
	h.respondCalendar(w, r, sess, err)
}

// SelectDate selects "day" of the displayed month.
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var (
		day    int
		hasDay bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "day" {
			v, err := d.Int()
			day, hasDay = v, true
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !hasDay {
		writeError(w, r, badRequest("day is required"))
		return
	}

	sess, err := h.checkout.SelectDate(r.Context(), r.PathValue("id"), day)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// SelectSlot selects the delivery "slot".
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var raw string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "slot" {
			v, err := d.Str()
			raw = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}
	slot, err := delivery.ParseSlot(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.checkout.SelectSlot(r.Context(), r.PathValue("id"), slot)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// ToggleSameDay flips the same-day flag.
func (h *Handler) ToggleSameDay(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.ToggleSameDay(r.Context(), r.PathValue("id"))
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// SetAddress stores a typed "address".
func (h *Handler) SetAddress(w http.ResponseWriter, r *http.Request) {
	var text string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key == "address" {
			v, err := d.Str()
			text = v
			return err
		}
		return d.Skip()
	}); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.checkout.SetAddress(r.Context(), r.PathValue("id"), text)
	h.respondSession(w, r, http.StatusOK, sess, err)
}

// UseCurrentLocation resolves the device's position report: either "lat"
// and "lon" or the geolocation "error" code. A failed lookup still returns
// the session, whose address is now empty, with a "location_error".
func (h *Handler) UseCurrentLocation(w http.ResponseWriter, r *http.Request) {
	var (
		report   address.Report
		pos      address.Position
		lat, lon bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "lat":
			pos.Lat, err = d.Float64()
			lat = true
		case "lon":
			pos.Lon, err = d.Float64()
			lon = true
		case "error":
			report.ErrorCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if lat && lon {
		report.Position = &pos
	} else if report.ErrorCode == "" {
		writeError(w, r, badRequest("lat/lon or error is required"))
		return
	}

	sess, err := h.checkout.UseCurrentLocation(r.Context(), r.PathValue("id"), report)
	var locErr *address.LocationError
	if sess == nil || !errors.As(err, &locErr) {
		h.respondSession(w, r, http.StatusOK, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeSession(e, sess, func(e *jx.Encoder) {
			e.FieldStart("location_error")
			e.ObjStart()
			e.FieldStart("code")
			e.Str(string(locErr.Code))
			e.FieldStart("message")
			e.Str(locErr.Error())
			e.ObjEnd()
		})
	})
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *checkout.Session, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		h.encodeSession(e, sess, nil)
	})
}

func (h *Handler) respondCalendar(w http.ResponseWriter, r *http.Request, sess *checkout.Session, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := sess.Schedule
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("year")
		e.Int(s.Year)
		e.FieldStart("month")
		e.Int(int(s.Month))
		e.FieldStart("days_in_month")
		e.Int(delivery.DaysInMonth(s.Year, s.Month))
		e.FieldStart("start_weekday")
		e.Int(int(delivery.StartWeekday(s.Year, s.Month)))
		e.FieldStart("cells")
		e.ArrStart()
		for _, c := range s.Grid() {
			e.Int(c)
		}
		e.ArrEnd()
		e.FieldStart("selected")
		e.Str(s.Date.String())
		e.FieldStart("slots")
		e.ArrStart()
		for _, slot := range delivery.Slots {
			e.ObjStart()
			e.FieldStart("slot")
			e.Str(string(slot))
			e.FieldStart("window")
			e.Str(slotWindow(slot))
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func slotWindow(s delivery.Slot) string {
	start, end := s.Window()
	return fmt.Sprintf("%02d:00-%02d:00", start, end)
}

// encodeSession writes the session view. extra may append fields.
func (h *Handler) encodeSession(e *jx.Encoder, sess *checkout.Session, extra func(e *jx.Encoder)) {
	q := h.checkout.Quote(sess)

	e.ObjStart()
	e.FieldStart("id")
	e.Str(sess.ID)
	if sess.PrimaryItemID != "" {
		e.FieldStart("primary_item_id")
		e.Str(sess.PrimaryItemID)
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range sess.Cart.Lines {
		e.ObjStart()
		e.FieldStart("item_id")
		e.Str(l.ItemID)
		if p, err := h.catalog.Product(l.ItemID); err == nil {
			e.FieldStart("name")
			e.Str(p.Name)
		}
		e.FieldStart("unit_price")
		money(e, l.UnitPrice)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("total")
		money(e, l.Total())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("coupon")
	if sess.Coupon == nil {
		e.Null()
	} else {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(q.CouponCode)
		if sess.Coupon.Description != "" {
			e.FieldStart("description")
			e.Str(sess.Coupon.Description)
		}
		e.FieldStart("status")
		e.Str(string(q.CouponStatus))
		if q.CouponReason != "" {
			e.FieldStart("reason")
			e.Str(q.CouponReason)
		}
		e.ObjEnd()
	}

	s := sess.Schedule
	e.FieldStart("delivery")
	e.ObjStart()
	e.FieldStart("date")
	e.Str(s.Date.String())
	e.FieldStart("slot")
	e.Str(string(s.Slot))
	e.FieldStart("window")
	e.Str(slotWindow(s.Slot))
	e.FieldStart("same_day")
	e.Bool(s.SameDay)
	e.ObjEnd()

	e.FieldStart("address")
	e.ObjStart()
	e.FieldStart("text")
	e.Str(sess.Address.Text)
	e.FieldStart("show_map")
	e.Bool(sess.Address.ShowMap)
	if p := sess.Address.Position; p != nil {
		e.FieldStart("lat")
		e.Float64(p.Lat)
		e.FieldStart("lon")
		e.Float64(p.Lon)
	}
	e.ObjEnd()

	e.FieldStart("totals")
	e.ObjStart()
	e.FieldStart("subtotal")
	money(e, q.Subtotal)
	e.FieldStart("delivery_fee")
	money(e, q.DeliveryFee)
	e.FieldStart("discount")
	money(e, q.Discount)
	e.FieldStart("total")
	money(e, q.Total)
	e.ObjEnd()

	if sess.OrderID != "" {
		e.FieldStart("order_id")
		e.Str(sess.OrderID)
	}
	if extra != nil {
		extra(e)
	}
	e.ObjEnd()
}
