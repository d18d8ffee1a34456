package stack

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// alarm fires on the first datapoint at or above one.
func alarm(scope constructs.Construct, name, description string, metric awscloudwatch.Metric) awscloudwatch.Alarm {
	return awscloudwatch.NewAlarm(scope, &name, &awscloudwatch.AlarmProps{
		AlarmName:          &name,
		AlarmDescription:   &description,
		Metric:             metric,
		Threshold:          jsii.Number(1),
		EvaluationPeriods:  jsii.Number(1),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})
}
