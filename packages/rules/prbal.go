package rules

import (
	a "github.com/abdul-hamid-achik/prbalcheck/packages/assertions"
	"github.com/abdul-hamid-achik/prbalcheck/packages/capture"
	"github.com/abdul-hamid-achik/prbalcheck/packages/document"
)

func present(paths ...string) []a.Check {
	checks := make([]a.Check, len(paths))
	for i, p := range paths {
		checks[i] = a.Present{Path: p}
	}
	return checks
}

func checks(groups ...[]a.Check) []a.Check {
	var out []a.Check
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// resultsList is the shape of every paginated list endpoint.
func resultsList() []a.Check {
	return []a.Check{a.Typed{Path: "results", Kind: document.Sequence}}
}

func firstResult(name string) capture.Capturer {
	return &capture.Capture{
		Name:      name,
		Path:      "results[0].id",
		When:      capture.WhenNonEmpty("results"),
		Transform: capture.Stringify,
	}
}

// Default returns the built-in rules for the Prbal API.
func Default() *Catalog {
	c := NewCatalog()

	// Authentication
	c.mustRegister(&a.Rule{
		ID:       "auth.register",
		Name:     "Registration successful",
		Status:   a.Expect(201),
		Checks:   present("access", "refresh", "user.id", "user.email", "user.user_type"),
		Captures: []capture.Capturer{capture.AuthTokens()},
	})
	c.mustRegister(&a.Rule{
		ID:       "auth.login",
		Name:     "Login successful",
		Status:   a.Expect(200),
		Checks:   present("access", "refresh", "user.id", "user.user_type"),
		Captures: []capture.Capturer{capture.AuthTokens()},
	})

	// Profiles
	c.mustRegister(&a.Rule{
		ID:     "profiles.get",
		Name:   "Profile retrieved successfully",
		Status: a.Expect(200),
		Checks: checks(
			present("id", "user", "full_name"),
			[]a.Check{a.NestedOrTop{Parent: "user", Field: "user_type"}},
		),
	})
	c.mustRegister(&a.Rule{
		ID:     "profiles.update",
		Name:   "Profile updated successfully",
		Status: a.Expect(200),
		Checks: checks(
			present("id"),
			[]a.Check{a.EchoesRequest{RequestField: "full_name", Path: "full_name"}},
		),
	})
	c.mustRegister(&a.Rule{
		ID:     "profiles.upload_image",
		Name:   "Profile image uploaded successfully",
		Status: a.Expect(200),
		Checks: present("profile_image"),
	})

	// Skills
	c.mustRegister(&a.Rule{
		ID:     "skills.list",
		Name:   "Skills list retrieved successfully",
		Status: a.Expect(200),
		Checks: resultsList(),
	})
	c.mustRegister(&a.Rule{
		ID:     "skills.create",
		Name:   "Skill created successfully (Admin Only)",
		Status: a.Expect(201),
		Checks: present("id", "name", "description"),
	})

	// Service categories
	c.mustRegister(&a.Rule{
		ID:       "categories.list",
		Name:     "Service categories list retrieved successfully",
		Status:   a.Expect(200),
		Checks:   resultsList(),
		Captures: []capture.Capturer{firstResult("category_id")},
	})

	// Services
	c.mustRegister(&a.Rule{
		ID:       "services.create",
		Name:     "Service created successfully",
		Status:   a.When(201),
		Checks:   present("id", "name", "category", "hourly_rate"),
		Captures: []capture.Capturer{capture.Field("service_id", "id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "services.update",
		Name:   "Service updated successfully",
		Status: a.When(200),
		Checks: checks(
			present("id"),
			[]a.Check{
				a.EqualsVariable{Path: "id", Variable: "service_id"},
				a.EchoesRequest{RequestField: "name", Path: "name"},
			},
		),
	})
	c.mustRegister(&a.Rule{
		ID:     "services.get",
		Name:   "Service retrieved successfully",
		Status: a.When(200),
		Checks: present("id", "name", "provider", "category"),
	})
	c.mustRegister(&a.Rule{
		ID:     "services.list",
		Name:   "Service list retrieved successfully",
		Status: a.Expect(200),
		Checks: checks(present("results"), resultsList()),
	})
	c.mustRegister(&a.Rule{
		ID:     "services.search",
		Name:   "Service search works correctly",
		Status: a.Expect(200),
		Checks: checks(
			present("results", "count"),
			resultsList(),
			[]a.Check{a.EachMatchesQuery{Param: "category", Sequence: "results", Field: "category.id"}},
		),
	})

	// Service requests
	c.mustRegister(&a.Rule{
		ID:       "requests.create",
		Name:     "Service request created successfully",
		Status:   a.When(201),
		Checks:   present("id", "title", "status", "customer"),
		Captures: []capture.Capturer{capture.Field("request_id", "id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "requests.list",
		Name:   "Service request list retrieved successfully",
		Status: a.Expect(200),
		Checks: checks(present("results"), resultsList()),
	})
	c.mustRegister(&a.Rule{
		ID:     "requests.available",
		Name:   "Available requests list retrieved successfully for providers",
		Status: a.When(200),
		Checks: checks(
			present("results"),
			resultsList(),
			[]a.Check{a.EachEquals{Sequence: "results", Field: "status", Value: "OPEN"}},
		),
	})

	// Bids
	c.mustRegister(&a.Rule{
		ID:     "bids.create",
		Name:   "Bid submitted successfully",
		Status: a.When(201),
		Checks: checks(
			present("id", "amount", "status"),
			[]a.Check{a.Equals{Path: "status", Value: "SUBMITTED"}},
		),
		Captures: []capture.Capturer{capture.Field("bid_id", "id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "bids.mine",
		Name:   "My bids list retrieved successfully",
		Status: a.Expect(200),
		Checks: checks(present("results"), resultsList()),
	})
	c.mustRegister(&a.Rule{
		ID:     "bids.get",
		Name:   "Bid details retrieved successfully",
		Status: a.When(200),
		Checks: present("id", "service_request", "provider", "amount", "status"),
	})
	c.mustRegister(&a.Rule{
		ID:     "bids.accept",
		Name:   "Bid accepted successfully by customer",
		Status: a.When(200),
		Checks: present("status"),
		Captures: []capture.Capturer{&capture.Capture{
			Name:      "booking_id",
			Path:      "booking.id",
			When:      capture.WhenTruthy("booking.id"),
			Transform: capture.Stringify,
		}},
	})
	c.mustRegister(&a.Rule{
		ID:     "bids.reject",
		Name:   "Bid rejected successfully by customer",
		Status: a.When(200),
		Checks: checks(
			present("status"),
			[]a.Check{a.Equals{Path: "status", Value: "REJECTED"}},
		),
	})
	c.mustRegister(&a.Rule{
		ID:     "bids.price_suggestion",
		Name:   "AI price suggestion retrieved successfully",
		Status: a.When(200),
		Checks: present("suggested_price"),
	})

	// Bookings
	c.mustRegister(&a.Rule{
		ID:       "bookings.list",
		Name:     "List my bookings successful",
		Status:   a.Expect(200),
		Checks:   resultsList(),
		Captures: []capture.Capturer{firstResult("booking_id"), firstResult("booking_id_for_review")},
	})
	c.mustRegister(&a.Rule{
		ID:     "bookings.get",
		Name:   "Get booking details successful",
		Status: a.Expect(200),
		Checks: present("id", "status"),
	})
	c.mustRegister(&a.Rule{
		ID:     "bookings.update_status",
		Name:   "Provider updates booking status successfully",
		Status: a.Expect(200),
		Checks: present("status"),
	})
	c.mustRegister(&a.Rule{
		ID:     "bookings.confirm",
		Name:   "Customer confirms booking completion successfully",
		Status: a.Expect(200),
		Checks: present("status"),
	})
	c.mustRegister(&a.Rule{
		ID:     "bookings.cancel",
		Name:   "Booking cancelled successfully",
		Status: a.Expect(200),
		Checks: checks(
			present("status"),
			[]a.Check{a.HasPrefix{Path: "status", Prefix: "cancelled"}},
		),
	})

	// Reviews
	c.mustRegister(&a.Rule{
		ID:       "reviews.create",
		Name:     "Review created successfully",
		Status:   a.Expect(201),
		Checks:   present("id", "rating", "comment"),
		Captures: []capture.Capturer{capture.Field("review_id", "id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "reviews.mine",
		Name:   "List my reviews successful",
		Status: a.Expect(200),
		Checks: resultsList(),
	})
	c.mustRegister(&a.Rule{
		ID:     "reviews.get",
		Name:   "Get review details successful",
		Status: a.Expect(200),
		Checks: present("id", "rating"),
	})
	c.mustRegister(&a.Rule{
		ID:     "reviews.respond",
		Name:   "Provider responds to review successfully",
		Status: a.Expect(200),
		Checks: []a.Check{a.NotEmpty{Path: "provider_response"}},
	})
	c.mustRegister(&a.Rule{
		ID:     "reviews.provider",
		Name:   "List reviews for a provider successful",
		Status: a.Expect(200),
		Checks: resultsList(),
	})

	// Chat
	c.mustRegister(&a.Rule{
		ID:       "chat.history",
		Name:     "Get chat history successful",
		Status:   a.Expect(200),
		Checks:   resultsList(),
		Captures: []capture.Capturer{firstResult("message_id")},
	})
	c.mustRegister(&a.Rule{
		ID:       "chat.send",
		Name:     "Send chat message successful",
		Status:   a.Expect(201),
		Checks:   present("id", "text_content"),
		Captures: []capture.Capturer{capture.Field("message_id", "id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "chat.mark_read",
		Name:   "Mark message as read successful",
		Status: a.Expect(200),
		Checks: []a.Check{a.Equals{Path: "status", Value: "message marked as read"}},
	})

	// Payments
	c.mustRegister(&a.Rule{
		ID:       "payments.list",
		Name:     "View payment details for booking successful",
		Status:   a.Expect(200),
		Checks:   resultsList(),
		Captures: []capture.Capturer{firstResult("payment_id")},
	})
	c.mustRegister(&a.Rule{
		ID:     "payments.initiate",
		Name:   "Initiate payment for booking successful",
		Status: a.Expect(200, 201),
		Checks: present("client_secret"),
	})

	// Authorization
	c.mustRegister(&a.Rule{
		ID:     "authz.unauthorized",
		Name:   "Unauthorized access returns 401",
		Status: a.Expect(401),
		Guard:  a.WithoutHeader("Authorization"),
	})
	c.mustRegister(&a.Rule{
		ID:             "authz.forbidden",
		Name:           "Forbidden access returns 403",
		NotImplemented: "needs a customer token on a provider-only endpoint",
	})

	return c
}
