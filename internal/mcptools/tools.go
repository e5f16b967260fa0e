// Package mcptools exposes the dispatcher's six actions as MCP tools over
// stdio, so conversational clients call the same closed operation set the
// REST surface offers.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jenkins-mcp-integ/pkg/api"
)

// Dispatcher is the core entry point the tool handlers forward into.
type Dispatcher interface {
	Dispatch(ctx context.Context, req api.ActionRequest) (*api.Result, error)
}

// Tools bundles the MCP tool definitions around one dispatcher.
type Tools struct {
	dispatcher Dispatcher
	log        *slog.Logger
}

// New creates the tool set.
func New(d Dispatcher, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{dispatcher: d, log: logger}
}

// Register adds all tools to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(t.listJobsTool(), t.handleListJobs)
	s.AddTool(t.buildStatusTool(), t.handleBuildStatus)
	s.AddTool(t.listBuildsTool(), t.handleListBuilds)
	s.AddTool(t.triggerBuildTool(), t.handleTriggerBuild)
	s.AddTool(t.buildLogTool(), t.handleBuildLog)
	s.AddTool(t.createJobTool(), t.handleCreateJob)
}

func (t *Tools) listJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription(
			"List Jenkins jobs and folders. Optionally scoped to a folder "+
				"path like 'MyFolder/MySubFolder'; recursive listing includes "+
				"the whole subtree.",
		),
		mcp.WithString("folder_name",
			mcp.Description("Folder path to list, empty for the root."),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Include entries below immediate children. Defaults to true."),
		),
	)
}

func (t *Tools) handleListJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.dispatch(ctx, api.ActionRequest{
		Action: api.ActionListJobs,
		Parameters: map[string]any{
			"folder_name": req.GetString("folder_name", ""),
			"recursive":   req.GetBool("recursive", true),
		},
	})
}

func (t *Tools) buildStatusTool() mcp.Tool {
	return mcp.NewTool("get_build_status",
		mcp.WithDescription(
			"Get the status of one build of a Jenkins job. The reference may "+
				"be a full path like 'MyFolder/MyJob' or a loose description; "+
				"ambiguous references return a listing to pick from.",
		),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Job path or free-form reference."),
		),
		mcp.WithString("build_number",
			mcp.Description("Build number or lastBuild / lastSuccessfulBuild / lastCompletedBuild. Defaults to lastBuild."),
		),
	)
}

func (t *Tools) handleBuildStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.dispatch(ctx, api.ActionRequest{
		Action: api.ActionGetBuildStatus,
		Parameters: map[string]any{
			"job_name":     req.GetString("job_name", ""),
			"build_number": req.GetString("build_number", ""),
		},
	})
}

func (t *Tools) listBuildsTool() mcp.Tool {
	return mcp.NewTool("list_job_builds",
		mcp.WithDescription("List recent builds of a Jenkins job, newest first."),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Job path or free-form reference."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of builds to return. Defaults to 5."),
		),
	)
}

func (t *Tools) handleListBuilds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.dispatch(ctx, api.ActionRequest{
		Action: api.ActionListJobBuilds,
		Parameters: map[string]any{
			"job_name": req.GetString("job_name", ""),
			"limit":    req.GetFloat("limit", 0),
		},
	})
}

func (t *Tools) triggerBuildTool() mcp.Tool {
	return mcp.NewTool("trigger_build",
		mcp.WithDescription(
			"Trigger a new build of a Jenkins job and wait briefly for the "+
				"queue item to become a numbered build. Each call enqueues a "+
				"new build; do not retry on success.",
		),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Job path or free-form reference."),
		),
		mcp.WithObject("build_parameters",
			mcp.Description("Optional name/value build parameters."),
		),
	)
}

func (t *Tools) handleTriggerBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	params := map[string]any{
		"job_name": req.GetString("job_name", ""),
	}
	if args != nil {
		if bp, ok := args["build_parameters"]; ok {
			params["build_parameters"] = bp
		}
	}
	return t.dispatch(ctx, api.ActionRequest{
		Action:     api.ActionTriggerBuild,
		Parameters: params,
	})
}

func (t *Tools) buildLogTool() mcp.Tool {
	return mcp.NewTool("get_build_log",
		mcp.WithDescription(
			"Read console output of one build incrementally. Pass the "+
				"returned cursor back to continue a long log; complete=false "+
				"means more output may still arrive.",
		),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Job path or free-form reference."),
		),
		mcp.WithString("build_number",
			mcp.Description("Build number or symbolic selector. Defaults to lastBuild."),
		),
		mcp.WithNumber("cursor",
			mcp.Description("Byte offset to continue from. 0 starts at the top."),
		),
	)
}

func (t *Tools) handleBuildLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.dispatch(ctx, api.ActionRequest{
		Action: api.ActionGetBuildLog,
		Parameters: map[string]any{
			"job_name":     req.GetString("job_name", ""),
			"build_number": req.GetString("build_number", ""),
			"cursor":       req.GetFloat("cursor", 0),
		},
	})
}

func (t *Tools) createJobTool() mcp.Tool {
	return mcp.NewTool("create_job",
		mcp.WithDescription(
			"Create a freestyle Jenkins job running a shell command, "+
				"optionally inside an existing folder.",
		),
		mcp.WithString("job_name",
			mcp.Required(),
			mcp.Description("Name of the new job."),
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Shell command the job runs."),
		),
		mcp.WithString("job_description",
			mcp.Description("Optional description."),
		),
		mcp.WithString("folder_name",
			mcp.Description("Existing parent folder path, empty for the root."),
		),
	)
}

func (t *Tools) handleCreateJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.dispatch(ctx, api.ActionRequest{
		Action: api.ActionCreateJob,
		Parameters: map[string]any{
			"job_name":        req.GetString("job_name", ""),
			"command":         req.GetString("command", ""),
			"job_description": req.GetString("job_description", ""),
			"folder_name":     req.GetString("folder_name", ""),
		},
	})
}

func (t *Tools) dispatch(ctx context.Context, req api.ActionRequest) (*mcp.CallToolResult, error) {
	result, err := t.dispatcher.Dispatch(ctx, req)
	if err != nil {
		t.log.Warn("dispatch failed",
			slog.String("action", req.Action),
			slog.String("error", err.Error()),
		)
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
