package engine

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// mountHijack installs a request interceptor on the page that drops the
// given resource types before they hit the network.
//
// Returns the running HijackRouter so the caller can defer router.Stop().
// Returns nil if there is nothing to block.
func mountHijack(page *rod.Page, blocked map[proto.NetworkResourceType]struct{}) *rod.HijackRouter {
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, drop := blocked[ctx.Request.Type()]; drop {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It exits when router.Stop() is called.
	go router.Run()

	return router
}

// blockedTypes assembles the resource-block set for a request.
func blockedTypes(blockImages, disableResources bool) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{})
	if disableResources {
		for t := range disableResourceTypes {
			blocked[t] = struct{}{}
		}
	}
	if blockImages {
		blocked[proto.NetworkResourceTypeImage] = struct{}{}
	}
	return blocked
}
