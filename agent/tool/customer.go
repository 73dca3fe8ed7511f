package tool

import (
	"context"

	contractx "github.com/tanpawarit/laia-quote-agent/agent/contract"
	statex "github.com/tanpawarit/laia-quote-agent/agent/state"
)

const (
	queuesTrigger = "SVC_VEH"
	queuesService = "SVC_COLAS"
)

func (e *Executor) setCustomer(_ context.Context, conv *statex.Conversation, args Args) contractx.ToolResult {
	name := args.String("customer_name")
	if name == "" {
		return errorResult("Falta customer_name.")
	}

	conv.CustomerName = &name
	conv.CustomerEmail = nonBlank(args.String("customer_email"))
	conv.ProjectAddress = nonBlank(args.String("project_address"))
	return okResult(nil)
}

func (e *Executor) setServices(_ context.Context, conv *statex.Conversation, args Args) contractx.ToolResult {
	known, unknown := e.deps.Catalog.Filter(args.Strings("services"))
	if len(known) == 0 {
		return errorResult("Lista de servicios vacía/ inválida.")
	}

	conv.Services = known
	payload := map[string]any{"services": known}
	if len(unknown) > 0 {
		payload["ignored"] = unknown
	}
	return okResult(payload)
}

// captureClient merges scalar fields and folds requested, added and removed
// services into the current set.
func (e *Executor) captureClient(_ context.Context, conv *statex.Conversation, args Args) contractx.ToolResult {
	if v := args.String("customer_name"); v != "" {
		conv.CustomerName = &v
	}
	if v := args.String("customer_email"); v != "" {
		conv.CustomerEmail = &v
	}
	if v := args.String("entity_type"); v != "" {
		conv.EntityType = statex.ParseEntityType(v)
	}
	if v := args.String("company_name"); v != "" {
		conv.CompanyName = &v
	}
	if v := args.String("address"); v != "" {
		conv.ProjectAddress = &v
	}

	requested, ignoredRequested := e.deps.Catalog.Filter(args.Strings("requested_services"))
	added, ignoredAdded := e.deps.Catalog.Filter(args.Strings("add_services"))

	services := statex.MergeServices(conv.Services, requested)
	services = statex.MergeServices(services, added)
	services = statex.RemoveServices(services, args.Strings("remove_services"))
	if args.Bool("include_queues") && contains(services, queuesTrigger) && !contains(services, queuesService) {
		services = append(services, queuesService)
	}
	conv.Services = services

	payload := map[string]any{
		"customer": map[string]any{
			"name":    optional(conv.CustomerName),
			"email":   optional(conv.CustomerEmail),
			"entity":  string(conv.Entity()),
			"company": optional(conv.CompanyName),
			"address": optional(conv.ProjectAddress),
		},
		"services": nonNil(services),
	}
	if ignored := append(ignoredRequested, ignoredAdded...); len(ignored) > 0 {
		payload["ignored"] = ignored
	}
	return okResult(payload)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
