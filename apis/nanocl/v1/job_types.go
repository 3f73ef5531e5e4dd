/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1

import "time"

// JobSpecData is the JSON payload stored in a Job's current Spec.Data.
type JobSpecData struct {
	Name       string          `json:"Name"`
	Schedule   string          `json:"Schedule,omitempty"`
	Containers []ContainerSpec `json:"Containers"`
}

// JobPartial is the client-supplied payload to create a job.
type JobPartial = JobSpecData

// Job is a finite set of containers run to completion, key = name.
type Job struct {
	Key       string    `json:"Key" db:"key"`
	SpecKey   string    `json:"SpecKey" db:"spec_key"`
	StatusKey string    `json:"StatusKey" db:"status_key"`
	CreatedAt time.Time `json:"CreatedAt" db:"created_at"`
}

// JobInspect joins a Job with its current spec, status and child processes.
type JobInspect struct {
	Job
	Spec      JobSpecData `json:"Spec"`
	Status    ObjPsStatus `json:"Status"`
	Processes []Process   `json:"Processes"`
}
