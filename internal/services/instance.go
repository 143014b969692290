package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// EC2API is the EC2 subset the instance probe uses.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// InstanceInfo is what status reporting shows about the instance a
// stack provisioned.
type InstanceInfo struct {
	InstanceID   string `json:"instance_id"`
	State        string `json:"state"`
	InstanceType string `json:"instance_type"`
	PublicIP     string `json:"public_ip,omitempty"`
	PublicDNS    string `json:"public_dns,omitempty"`
}

// InstanceProbe resolves the runtime state of an EC2 instance from a
// stack's outputs. CloudFormation only knows the instance was created;
// the probe answers whether it is actually running.
type InstanceProbe struct {
	client EC2API
}

func NewInstanceProbe(client EC2API) *InstanceProbe {
	return &InstanceProbe{client: client}
}

// Describe fetches the current state of one instance.
func (p *InstanceProbe) Describe(ctx context.Context, instanceID string) (*InstanceInfo, error) {
	result, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}

	for _, reservation := range result.Reservations {
		for i := range reservation.Instances {
			instance := &reservation.Instances[i]
			info := &InstanceInfo{
				InstanceID:   aws.ToString(instance.InstanceId),
				InstanceType: string(instance.InstanceType),
				PublicIP:     aws.ToString(instance.PublicIpAddress),
				PublicDNS:    aws.ToString(instance.PublicDnsName),
			}
			if instance.State != nil {
				info.State = string(instance.State.Name)
			}
			return info, nil
		}
	}

	return nil, fmt.Errorf("instance %s not found", instanceID)
}
