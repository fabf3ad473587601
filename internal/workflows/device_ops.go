package workflows

import (
	"github.com/randalmurphal/triage/pkg/triage"
	"github.com/randalmurphal/triage/pkg/triage/classifier"
	"github.com/randalmurphal/triage/pkg/triage/nodes"
)

// NodeLevel1Classifier sorts device operation requests.
const NodeLevel1Classifier = "level1_classifier"

// Device operation categories. DeviceOther is the fallback.
const (
	DeviceOther        = "Other"
	DeviceAdd          = "新增设备"
	DeviceRepair       = "维修记录"
	DeviceDecommission = "设备下架"
	DeviceManual       = "手册导入"
	DeviceExperience   = "运维经验录入"
)

// DeviceOpsCategories are offered to the classifier.
var DeviceOpsCategories = []string{DeviceOther, DeviceAdd, DeviceRepair, DeviceDecommission, DeviceManual, DeviceExperience}

var deviceOpsInstructions = []string{
	"If the user input is a general AI chat, classify it as: Normal AI Chat",
	"If the user input is '新增设备', '登记新设备', or related to adding new equipment, classify it as: 新增设备",
	"If the user input is '维修记录' or related to maintenance records, classify it as: 维修记录",
	"If the user input is '设备下架' or related to device decommissioning, classify it as: 设备下架",
	"If the user input is '手册导入' or related to importing manuals, classify it as: 手册导入",
	"If the user input is '运维经验录入' or related to entering O&M experience, classify it as: 运维经验录入",
	"For any other input, classify it as: Other",
}

// NewDeviceOpsRouter matches the device categories in declaration order.
func NewDeviceOpsRouter() *triage.SubstringRouter {
	return triage.NewSubstringRouter(nodes.KeyClassifierOutput, DeviceOther,
		DeviceAdd, DeviceRepair, DeviceDecommission, DeviceManual, DeviceExperience)
}

// NewDeviceOps builds the single-level device operations graph.
func NewDeviceOps(c classifier.Classifier) (*triage.CompiledGraph, error) {
	if c == nil {
		return nil, ErrNilClassifier
	}

	level1 := nodes.NewClassifier(c, DeviceOpsCategories, nodes.WithInstructions(deviceOpsInstructions...))

	routes := make(map[string]string, len(DeviceOpsCategories))
	for _, category := range DeviceOpsCategories {
		routes[category] = NodeRecorder
	}

	return triage.NewGraph(DeviceOps, nodes.Schema()).
		AddNode(NodeLevel1Classifier, level1).
		AddNode(NodeRecorder, nodes.NewRecorder()).
		AddEdge(triage.START, NodeLevel1Classifier).
		AddConditionalEdges(NodeLevel1Classifier, NewDeviceOpsRouter(), routes).
		AddEdge(NodeRecorder, triage.END).
		Compile()
}
