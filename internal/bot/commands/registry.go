package commands

import (
	"github.com/edgard/basebot/internal/bot/plugins"
)

// RegisterAllCommands returns every built-in plugin in lookup order. It is used as the
// plugin registry's loader, so it must build fresh values on every call.
func RegisterAllCommands(deps CommandDeps) []plugins.Plugin {
	return []plugins.Plugin{
		{
			Name:        "ping",
			Commands:    []string{"ping"},
			Description: "Check that the bot is alive and measure latency",
			Handler:     NewPingHandler(deps),
		},
		{
			Name:        "help",
			Commands:    []string{"help", "menu"},
			Description: "List available commands",
			Handler:     NewHelpHandler(deps),
		},
		{
			Name:        "checkadmin",
			Commands:    []string{"checkadmin", "cekadmin"},
			Description: "Show whether you and the bot are group admins",
			GroupOnly:   true,
			Handler:     NewCheckAdminHandler(deps),
		},
		{
			Name:        "reload",
			Commands:    []string{"reload"},
			Description: "Reload the plugin list",
			OwnerOnly:   true,
			Handler:     NewReloadHandler(deps),
		},
		{
			Name:        "stats",
			Commands:    []string{"stats"},
			Description: "Show command usage for the last 24 hours",
			OwnerOnly:   true,
			Handler:     NewStatsHandler(deps),
		},
		{
			Name:        "promote",
			Commands:    []string{"promote"},
			Description: "Make the mentioned members admins",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewPromoteHandler(deps),
		},
		{
			Name:        "demote",
			Commands:    []string{"demote"},
			Description: "Revoke admin rank from the mentioned members",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewDemoteHandler(deps),
		},
		{
			Name:        "kick",
			Commands:    []string{"kick"},
			Description: "Remove the mentioned members from the group",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewKickHandler(deps),
		},
		{
			Name:        "add",
			Commands:    []string{"add"},
			Description: "Add the given numbers to the group",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewAddHandler(deps),
		},
		{
			Name:        "kickall",
			Commands:    []string{"kickall"},
			Description: "Remove every member who is not an admin or an owner",
			OwnerOnly:   true,
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewKickAllHandler(deps),
		},
		{
			Name:        "setname",
			Commands:    []string{"setname", "setsubject"},
			Description: "Change the group subject",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewSetNameHandler(deps),
		},
		{
			Name:        "setdesc",
			Commands:    []string{"setdesc", "setdescription"},
			Description: "Change the group description",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewSetDescriptionHandler(deps),
		},
		{
			Name:        "group",
			Commands:    []string{"group", "gc"},
			Description: "Change who can send messages, edit info or add members",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewGroupSettingsHandler(deps),
		},
		{
			Name:        "link",
			Commands:    []string{"link", "linkgroup"},
			Description: "Show the group invite link",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewInviteLinkHandler(deps),
		},
		{
			Name:        "revoke",
			Commands:    []string{"revoke"},
			Description: "Revoke the group invite link",
			GroupOnly:   true,
			AdminOnly:   true,
			Handler:     NewRevokeInviteHandler(deps),
		},
		{
			Name:        "leave",
			Commands:    []string{"leave"},
			Description: "Make the bot leave the group",
			OwnerOnly:   true,
			GroupOnly:   true,
			Handler:     NewLeaveHandler(deps),
		},
		{
			Name:        "block",
			Commands:    []string{"block"},
			Description: "Block the mentioned users",
			OwnerOnly:   true,
			Handler:     NewBlockHandler(deps),
		},
		{
			Name:        "unblock",
			Commands:    []string{"unblock"},
			Description: "Unblock the mentioned users",
			OwnerOnly:   true,
			Handler:     NewUnblockHandler(deps),
		},
	}
}
