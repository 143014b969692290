package policy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestValidator_ValidateTemplate(t *testing.T) {
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name             string
		template         string
		expectAllow      bool
		expectViolations []string
	}{
		{
			name: "well-formed instance stack",
			template: `{
				"Resources": {
					"AppSecurityGroup": {
						"Type": "AWS::EC2::SecurityGroup",
						"Properties": {
							"SecurityGroupIngress": [
								{"IpProtocol": "tcp", "FromPort": 22, "ToPort": 22, "CidrIp": "203.0.113.0/24"},
								{"IpProtocol": "tcp", "FromPort": 80, "ToPort": 80, "CidrIp": "0.0.0.0/0"}
							]
						}
					},
					"AppInstance": {
						"Type": "AWS::EC2::Instance",
						"Properties": {"InstanceType": "t3.small"}
					}
				}
			}`,
			expectAllow: true,
		},
		{
			name: "ssh open to the world",
			template: `{
				"Resources": {
					"AppSecurityGroup": {
						"Type": "AWS::EC2::SecurityGroup",
						"Properties": {
							"SecurityGroupIngress": [
								{"IpProtocol": "tcp", "FromPort": 22, "ToPort": 22, "CidrIp": "0.0.0.0/0"}
							]
						}
					}
				}
			}`,
			expectAllow:      false,
			expectViolations: []string{"opens SSH"},
		},
		{
			name: "ssh open inside a wide port range",
			template: `{
				"Resources": {
					"AppSecurityGroup": {
						"Type": "AWS::EC2::SecurityGroup",
						"Properties": {
							"SecurityGroupIngress": [
								{"IpProtocol": "tcp", "FromPort": 0, "ToPort": 1024, "CidrIp": "0.0.0.0/0"}
							]
						}
					}
				}
			}`,
			expectAllow:      false,
			expectViolations: []string{"opens SSH"},
		},
		{
			name: "disallowed instance type",
			template: `{
				"Resources": {
					"AppInstance": {
						"Type": "AWS::EC2::Instance",
						"Properties": {"InstanceType": "p4d.24xlarge"}
					}
				}
			}`,
			expectAllow:      false,
			expectViolations: []string{"disallowed instance type"},
		},
		{
			name: "wildcard iam role",
			template: `{
				"Resources": {
					"AppRole": {
						"Type": "AWS::IAM::Role",
						"Properties": {
							"Policies": [
								{
									"PolicyName": "everything",
									"PolicyDocument": {
										"Statement": [
											{"Effect": "Allow", "Action": "*", "Resource": "*"}
										]
									}
								}
							]
						}
					}
				}
			}`,
			expectAllow:      false,
			expectViolations: []string{"* actions on * resources"},
		},
		{
			name: "scoped iam role is allowed",
			template: `{
				"Resources": {
					"AppRole": {
						"Type": "AWS::IAM::Role",
						"Properties": {
							"Policies": [
								{
									"PolicyName": "ecr-pull",
									"PolicyDocument": {
										"Statement": [
											{"Effect": "Allow", "Action": ["ecr:GetDownloadUrlForLayer"], "Resource": "*"}
										]
									}
								}
							]
						}
					}
				}
			}`,
			expectAllow: true,
		},
		{
			name: "multiple violations reported together",
			template: `{
				"Resources": {
					"AppSecurityGroup": {
						"Type": "AWS::EC2::SecurityGroup",
						"Properties": {
							"SecurityGroupIngress": [
								{"IpProtocol": "tcp", "FromPort": 22, "ToPort": 22, "CidrIp": "0.0.0.0/0"}
							]
						}
					},
					"AppInstance": {
						"Type": "AWS::EC2::Instance",
						"Properties": {"InstanceType": "x2idn.metal"}
					}
				}
			}`,
			expectAllow:      false,
			expectViolations: []string{"opens SSH", "disallowed instance type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]any
			if err := json.Unmarshal([]byte(tt.template), &doc); err != nil {
				t.Fatalf("bad test template: %v", err)
			}

			result, err := validator.ValidateTemplate(context.Background(), doc, "dev", "chat-api")
			if err != nil {
				t.Fatalf("ValidateTemplate failed: %v", err)
			}

			if result.Allowed != tt.expectAllow {
				t.Errorf("Allowed = %v, want %v (violations: %v)", result.Allowed, tt.expectAllow, result.Violations)
			}

			for _, want := range tt.expectViolations {
				found := false
				for _, v := range result.Violations {
					if strings.Contains(v, want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected a violation containing %q, got %v", want, result.Violations)
				}
			}
		})
	}
}
