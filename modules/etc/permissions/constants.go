package permissions

import "github.com/iota-uz/etc-portal/pkg/authz"

const ModuleName = "etc"

var (
	ObjectPayment  = authz.ObjectName(ModuleName, "payment")
	ObjectRequests = authz.ObjectName(ModuleName, "requests")
	ObjectSettings = authz.ObjectName(ModuleName, "settings")
)

// Node is one permission capability an actor either holds or does not. Its
// string form (module.resource.action) is the durable contract shared with the
// policy store.
type Node struct {
	Object string
	Action string
}

func (n Node) String() string {
	return n.Object + "." + n.Action
}

var (
	PaymentVerify = Node{Object: ObjectPayment, Action: "verify"}

	RequestsView        = Node{Object: ObjectRequests, Action: "view"}
	RequestsApproveInfo = Node{Object: ObjectRequests, Action: "approve_info"}
	RequestsReviewInfo  = Node{Object: ObjectRequests, Action: "review_info"}
	RequestsReject      = Node{Object: ObjectRequests, Action: "reject"}
	RequestsManageTags  = Node{Object: ObjectRequests, Action: "manage_tags"}
	RequestsAssign      = Node{Object: ObjectRequests, Action: "assign"}
	RequestsComment     = Node{Object: ObjectRequests, Action: "comment"}

	SettingsManage = Node{Object: ObjectSettings, Action: "manage"}
)

var All = []Node{
	PaymentVerify,
	RequestsView,
	RequestsApproveInfo,
	RequestsReviewInfo,
	RequestsReject,
	RequestsManageTags,
	RequestsAssign,
	RequestsComment,
	SettingsManage,
}
